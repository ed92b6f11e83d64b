package format

import (
	"errors"
	"fmt"

	"github.com/nao1215/reportconv/internal/model"
)

// ErrDuplicateFormat is returned when two parsers register the same name.
var ErrDuplicateFormat = errors.New("format already registered")

// ErrUnknownFormat is returned when a format hint names no registered parser.
var ErrUnknownFormat = errors.New("unknown format")

// Registry maps format identifiers to parsers and auto-detects the format
// of an input.
//
// Detection runs the detectors in registration order and the first claim
// wins. Callers therefore register the most specific formats first and
// structural supersets (generic YAML/JSON, free-form text) last.
//
// A Registry is populated once and only read afterwards, so it is safe for
// concurrent Resolve calls without locking.
type Registry struct {
	parsers []Parser
	byName  map[string]Parser
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Parser)}
}

// Register appends a parser to the detection order.
func (r *Registry) Register(p Parser) error {
	name := p.Name()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFormat, name)
	}
	r.parsers = append(r.parsers, p)
	r.byName[name] = p
	return nil
}

// MustRegister is Register that panics on error. It is meant for building
// registries at program start.
func (r *Registry) MustRegister(parsers ...Parser) *Registry {
	for _, p := range parsers {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Lookup returns the parser registered under name.
func (r *Registry) Lookup(name string) (Parser, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Names returns the registered format names in detection order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		names[i] = p.Name()
	}
	return names
}

// Parsers returns the registered parsers in detection order.
func (r *Registry) Parsers() []Parser {
	return append([]Parser(nil), r.parsers...)
}

// Resolve selects the parser for an input. A non-empty hint forces the
// named format; otherwise detectors are tried in order.
// It returns model.ErrRegistryMiss when nothing claims the input.
func (r *Registry) Resolve(in Input, hint string) (Parser, error) {
	if hint != "" {
		p, ok := r.byName[hint]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, hint)
		}
		return p, nil
	}

	sample := in.Sample()
	for _, p := range r.parsers {
		if p.Detect(sample) {
			return p, nil
		}
	}
	return nil, model.ErrRegistryMiss
}
