package model

import "sort"

// Step is a raw bug path record as an analyzer emits it, before ordering
// and note association.
type Step struct {
	Location Location
	Message  string
	Kind     EventKind

	// Depth is the analyzer's nesting marker (call depth, nesting level).
	Depth int

	// Order is an explicit execution order. It is only honoured when
	// HasOrder is set; steps without one keep their position relative to
	// the preceding ordered step, or go last when no ordered step follows.
	Order    int
	HasOrder bool

	Ranges []Range
	Origin *Location
}

// PathBuilder reconstructs a bug path from flat, possibly out-of-order
// records. It runs a single linear pass after ordering and tracks the
// current depth and the index of the last substantive event instead of
// building a tree.
type PathBuilder struct {
	steps []Step
}

// Add appends a raw step.
func (b *PathBuilder) Add(s Step) {
	b.steps = append(b.steps, s)
}

// Len returns the number of raw steps added so far.
func (b *PathBuilder) Len() int {
	return len(b.steps)
}

// Build sets r.BugPath from the collected steps and enforces the
// terminal-event invariant. A path that degenerates to the primary
// location alone is dropped so single-point diagnostics keep an empty path.
func (b *PathBuilder) Build(r *Report) {
	steps := b.ordered()

	path := make([]BugPathEvent, 0, len(steps))
	var pending []BugPathEvent
	current := -1
	baseDepth, depth := 0, 0
	seenDepth := false

	for _, s := range steps {
		ev := BugPathEvent{
			Location: s.Location,
			Message:  s.Message,
			Kind:     s.Kind,
			Ranges:   s.Ranges,
			Origin:   s.Origin,
		}

		if s.Kind == EventKindNote {
			ev.Depth = depth
			if current < 0 {
				pending = append(pending, ev)
				continue
			}
			path[current].Notes = append(path[current].Notes, ev)
			continue
		}

		if !seenDepth {
			baseDepth = s.Depth
			seenDepth = true
		}
		d := s.Depth - baseDepth
		if d < 0 {
			d = 0
		}
		// A step can enter at most one new frame.
		if d > depth+1 {
			d = depth + 1
		}
		depth = d
		ev.Depth = d

		path = append(path, ev)
		current = len(path) - 1
		if len(pending) > 0 {
			path[current].Notes = append(pending, path[current].Notes...)
			pending = nil
		}
	}

	r.BugPath = path
	if len(pending) > 0 {
		r.BugPath = append(r.BugPath, BugPathEvent{
			Location: r.Location,
			Message:  r.Message,
			Kind:     EventKindEvent,
			Notes:    pending,
		})
	}
	r.Finalize()

	if len(r.BugPath) == 1 {
		only := r.BugPath[0]
		if len(only.Notes) == 0 && len(only.Ranges) == 0 && only.Message == r.Message {
			r.BugPath = nil
		}
	}
	if len(r.BugPath) == 0 {
		r.BugPath = nil
	}
}

// ordered returns the steps sorted by explicit order when any is present.
func (b *PathBuilder) ordered() []Step {
	steps := append([]Step(nil), b.steps...)

	ordered := false
	var lo, hi, lastOrdered int
	for i, s := range steps {
		if !s.HasOrder {
			continue
		}
		if !ordered || s.Order < lo {
			lo = s.Order
		}
		if !ordered || s.Order > hi {
			hi = s.Order
		}
		ordered = true
		lastOrdered = i
	}
	if !ordered {
		return steps
	}

	// Unordered steps follow the preceding ordered step. Those after the
	// last ordered step go to the end of the path.
	keys := make([]int, len(steps))
	last := lo
	for i, s := range steps {
		switch {
		case s.HasOrder:
			last = s.Order
		case i > lastOrdered:
			last = hi + 1
		}
		keys[i] = last
	}

	idx := make([]int, len(steps))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]] < keys[idx[b]]
	})

	out := make([]Step, len(steps))
	for i, j := range idx {
		out[i] = steps[j]
	}
	return out
}
