// Package formats wires every supported analyzer format into the default
// parser registry.
package formats

import (
	"sync"

	"github.com/nao1215/reportconv/internal/format"
	"github.com/nao1215/reportconv/internal/format/clangtidy"
	"github.com/nao1215/reportconv/internal/format/gcc"
	"github.com/nao1215/reportconv/internal/format/infer"
	"github.com/nao1215/reportconv/internal/format/plist"
	"github.com/nao1215/reportconv/internal/format/sanitizer"
	"github.com/nao1215/reportconv/internal/format/sarif"
	"github.com/nao1215/reportconv/internal/format/smatch"
	"github.com/nao1215/reportconv/internal/format/unified"
)

// Default returns the process-wide registry. It is built on first use and
// never modified afterwards.
//
// Detection order, most specific first:
//
//  1. plist            XML/binary property lists
//  2. sarif            JSON object with "runs"
//  3. infer            JSON array with "bug_type"
//  4. clang-tidy-yaml  YAML with DiagnosticName
//  5. unified          YAML/JSON lists of records with checker keys
//  6. sanitizer        sanitizer headers in plain text
//  7. smatch           file:line func() level: lines in plain text
//  8. gcc              file:line:col: level: lines in plain text
//
// unified must come after the other structured formats because it
// accepts a superset of their shapes, and gcc after sanitizer because
// UBSan lines are compiler-like.
var Default = sync.OnceValue(func() *format.Registry {
	return New()
})

// New builds a fresh registry with every format in detection order.
func New() *format.Registry {
	return format.NewRegistry().MustRegister(
		plist.New(),
		sarif.New(),
		infer.New(),
		clangtidy.New(),
		unified.New(),
		sanitizer.New(),
		smatch.New(),
		gcc.New(),
	)
}
