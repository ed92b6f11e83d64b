// Package resolve canonicalizes the file paths of reports against a
// source root.
//
// Resolution never mutates its input: Resolve returns a deep copy with
// every location rewritten, so the same report can be resolved against
// different roots.
package resolve

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nao1215/reportconv/internal/model"
)

// ErrEmptyMapping is returned when a path mapping has an empty prefix.
var ErrEmptyMapping = errors.New("path mapping prefix must not be empty")

// Mapping rewrites a build-machine path prefix to a local one.
type Mapping struct {
	From string `yaml:"from" toml:"from" validate:"required"`
	To   string `yaml:"to" toml:"to" validate:"required"`
}

// ParseMapping parses a "from=to" flag value.
func ParseMapping(s string) (Mapping, error) {
	from, to, ok := strings.Cut(s, "=")
	if !ok || from == "" {
		return Mapping{}, ErrEmptyMapping
	}
	return Mapping{From: from, To: to}, nil
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMappings adds prefix mappings. The longest matching prefix wins.
func WithMappings(m ...Mapping) Option {
	return func(r *Resolver) {
		r.Mappings = append(r.Mappings, m...)
	}
}

// WithCheckExists marks locations whose file does not exist under the
// root as unresolved.
func WithCheckExists(check bool) Option {
	return func(r *Resolver) {
		r.CheckExists = check
	}
}

// Resolver maps analyzer paths to paths relative to Root.
// It is safe for concurrent use.
type Resolver struct {
	Root        string
	Mappings    []Mapping
	CheckExists bool

	root     string
	realRoot string
	cache    sync.Map // raw path -> resolved
}

type resolved struct {
	file   string
	status model.PathStatus
}

// Stats counts the outcome of resolving primary report locations.
type Stats struct {
	Resolved   int
	External   int
	Unresolved int
}

func (s *Stats) add(status model.PathStatus) {
	switch status {
	case model.PathResolved:
		s.Resolved++
	case model.PathExternal:
		s.External++
	case model.PathUnresolved:
		s.Unresolved++
	default:
	}
}

// New returns a resolver for the given source root. An empty root means
// the working directory.
func New(root string, opts ...Option) (*Resolver, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	r := &Resolver{Root: abs}
	for _, opt := range opts {
		opt(r)
	}
	for _, m := range r.Mappings {
		if m.From == "" {
			return nil, ErrEmptyMapping
		}
	}

	r.root = toSlash(abs)
	r.realRoot = r.root
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		r.realRoot = toSlash(real)
	}

	mappings := make([]Mapping, len(r.Mappings))
	for i, m := range r.Mappings {
		mappings[i] = Mapping{From: trimSlash(toSlash(m.From)), To: trimSlash(toSlash(m.To))}
	}
	sort.SliceStable(mappings, func(i, j int) bool {
		return len(mappings[i].From) > len(mappings[j].From)
	})
	r.Mappings = mappings
	return r, nil
}

// Resolve returns a copy of rep with every location resolved.
func (r *Resolver) Resolve(rep *model.Report) *model.Report {
	out, _ := r.resolve(rep)
	return out
}

// ResolveAll resolves every report and counts the primary location outcomes.
func (r *Resolver) ResolveAll(reps []*model.Report) ([]*model.Report, Stats) {
	var st Stats
	out := make([]*model.Report, len(reps))
	for i, rep := range reps {
		var status model.PathStatus
		out[i], status = r.resolve(rep)
		st.add(status)
	}
	return out, st
}

func (r *Resolver) resolve(rep *model.Report) (*model.Report, model.PathStatus) {
	c := rep.Clone()
	c.Location = r.location(c.Location)
	r.events(c.BugPath)
	return c, c.Location.Status
}

// events resolves a cloned event slice in place.
func (r *Resolver) events(evs []model.BugPathEvent) {
	for i := range evs {
		ev := &evs[i]
		ev.Location = r.location(ev.Location)
		if ev.Origin != nil {
			origin := r.location(*ev.Origin)
			ev.Origin = &origin
		}
		r.events(ev.Notes)
	}
}

func (r *Resolver) location(loc model.Location) model.Location {
	if loc.Status != model.PathRaw {
		return loc
	}
	res := r.file(loc.File)
	loc.Status = res.status
	if res.file != loc.File {
		loc.OriginalFile = loc.File
		loc.File = res.file
	}
	return loc
}

func (r *Resolver) file(raw string) resolved {
	if v, ok := r.cache.Load(raw); ok {
		return v.(resolved) //nolint:forcetypeassert // only resolved values are stored
	}
	res := r.compute(raw)
	r.cache.Store(raw, res)
	return res
}

func (r *Resolver) compute(raw string) resolved {
	if strings.TrimSpace(raw) == "" {
		return resolved{file: raw, status: model.PathUnresolved}
	}

	p := r.local(raw)
	rel, ok := within(r.root, p)
	if !ok {
		return resolved{file: raw, status: model.PathExternal}
	}

	native := filepath.FromSlash(p)
	if r.CheckExists {
		if _, err := os.Stat(native); err != nil {
			return resolved{file: raw, status: model.PathUnresolved}
		}
	}
	if target, err := filepath.EvalSymlinks(native); err == nil {
		if realRel, ok := within(r.realRoot, toSlash(target)); ok {
			rel = realRel
		}
	}
	return resolved{file: rel, status: model.PathResolved}
}

// local applies the mappings and anchors relative paths at the root.
// The result is a clean slash-separated absolute path.
func (r *Resolver) local(raw string) string {
	p := toSlash(raw)
	for _, m := range r.Mappings {
		if p == m.From || strings.HasPrefix(p, m.From+"/") {
			p = m.To + p[len(m.From):]
			break
		}
	}
	if !isAbs(p) {
		return path.Join(r.root, p)
	}
	return path.Clean(p)
}

// ReadSource reads a source file referenced by an analyzer, trying the
// mapped local path first. It lets parsers that need file contents work
// on outputs produced on another machine.
func (r *Resolver) ReadSource(raw string) ([]byte, error) {
	data, err := os.ReadFile(filepath.FromSlash(r.local(raw)))
	if err == nil {
		return data, nil
	}
	if fallback, ferr := os.ReadFile(raw); ferr == nil { //nolint:gosec // paths come from the analyzer output being converted
		return fallback, nil
	}
	return nil, err
}

func within(root, p string) (string, bool) {
	if p == root {
		return ".", true
	}
	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	return p[len(prefix):], true
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

func trimSlash(p string) string {
	if len(p) > 1 {
		return strings.TrimRight(p, "/")
	}
	return p
}

// isAbs accepts Unix roots and Windows drive letters regardless of the host.
func isAbs(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && p[2] == '/' &&
		(p[0] >= 'a' && p[0] <= 'z' || p[0] >= 'A' && p[0] <= 'Z')
}
