// Package input reads analyzer output files into memory: bounded,
// decompressed and decoded to UTF-8.
package input

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/unicode"
)

// DefaultMaxSize is the default read cap for a single input.
const DefaultMaxSize int64 = 64 << 20

var (
	// ErrTooLarge is returned when an input (or its decompressed form)
	// exceeds the size cap.
	ErrTooLarge = errors.New("input exceeds the size limit")
	// ErrEncoding is returned when text input is neither UTF-8 nor UTF-16 with a BOM.
	ErrEncoding = errors.New("input is not valid UTF-8")
	// ErrNotRegular is returned for inputs that are not regular files.
	ErrNotRegular = errors.New("input is not a regular file")
)

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	bplistMagic = []byte("bplist")
	utf8BOM     = []byte{0xef, 0xbb, 0xbf}
)

// Reader loads input files.
type Reader struct {
	// MaxSize caps both the on-disk and the decompressed size.
	MaxSize int64
}

// NewReader returns a reader with the given cap. A non-positive cap
// selects DefaultMaxSize.
func NewReader(maxSize int64) *Reader {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Reader{MaxSize: maxSize}
}

// ReadFile reads and decodes path.
func (r *Reader) ReadFile(path string) ([]byte, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotRegular
	}
	if info.Size() > r.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, info.Size(), r.MaxSize)
	}

	data, err := readLimited(f, r.MaxSize)
	if err != nil {
		return nil, err
	}
	return r.Decode(data)
}

// Decode decompresses gzip and zstd payloads, converts UTF-16 text to
// UTF-8 and strips a UTF-8 byte order mark. Binary property lists are
// returned untouched.
func (r *Reader) Decode(data []byte) ([]byte, error) {
	var err error
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		data, err = r.gunzip(data)
	case bytes.HasPrefix(data, zstdMagic):
		data, err = r.unzstd(data)
	}
	if err != nil {
		return nil, err
	}
	return decodeText(data)
}

func (r *Reader) gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()
	return readLimited(zr, r.MaxSize)
}

func (r *Reader) unzstd(data []byte) ([]byte, error) {
	//nolint:gosec // MaxSize is always positive
	zr, err := zstd.NewReader(bytes.NewReader(data),
		zstd.WithDecoderMaxMemory(uint64(r.MaxSize)),
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer zr.Close()
	return readLimited(zr, r.MaxSize)
}

func readLimited(src io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

func decodeText(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, bplistMagic):
		return data, nil
	case bytes.HasPrefix(data, []byte{0xfe, 0xff}), bytes.HasPrefix(data, []byte{0xff, 0xfe}):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
		}
		return out, nil
	case bytes.HasPrefix(data, utf8BOM):
		data = data[len(utf8BOM):]
	}
	if !utf8.Valid(data) {
		return nil, ErrEncoding
	}
	return data, nil
}

// Expand replaces every directory in paths with the regular files it
// directly contains, in name order. Other paths are returned as given so
// that missing files surface as per-file diagnostics.
func Expand(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", p, err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				out = append(out, filepath.Join(p, e.Name()))
			}
		}
	}
	return out, nil
}
