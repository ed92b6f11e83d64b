// Package dedup merges reports that describe the same defect.
package dedup

import (
	"path"

	"github.com/nao1215/reportconv/internal/model"
)

// authority declares which analyzer's report wins for matching checkers.
type authority struct {
	pattern  string
	analyzer string
}

// Option configures a Merger.
type Option func(*Merger)

// WithAuthority makes reports from analyzer the representative of their
// group when the checker name matches pattern (path.Match syntax).
func WithAuthority(pattern, analyzer string) Option {
	return func(m *Merger) {
		m.authorities = append(m.authorities, authority{pattern: pattern, analyzer: analyzer})
	}
}

// Merger groups reports by model.DedupKey. The zero value keeps the first
// occurrence of every group.
type Merger struct {
	authorities []authority
}

// NewMerger returns a merger with the given options.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge collapses reports with equal keys. Output order is the order of
// first occurrence. The representative of a group is its first report,
// unless a later one comes from the authoritative analyzer for the
// checker. The representative counts the merged reports in Duplicates and
// carries the union of their Sources. Merge never mutates its input and
// Merge(Merge(x)) equals Merge(x).
func (m *Merger) Merge(reports []*model.Report) []*model.Report {
	type group struct {
		rep     *model.Report
		sources map[string]struct{}
	}

	index := make(map[model.DedupKey]int, len(reports))
	groups := make([]*group, 0, len(reports))

	for _, r := range reports {
		if r == nil {
			continue
		}
		key := r.Key()
		i, seen := index[key]
		if !seen {
			g := &group{rep: r.Clone(), sources: make(map[string]struct{})}
			g.rep.Sources = nil
			addSources(g.rep, g.sources, r)
			index[key] = len(groups)
			groups = append(groups, g)
			continue
		}

		g := groups[i]
		dups := g.rep.Duplicates + r.Duplicates + 1
		if !m.authoritative(g.rep) && m.authoritative(r) {
			sources := g.rep.Sources
			g.rep = r.Clone()
			g.rep.Sources = sources
		}
		g.rep.Duplicates = dups
		addSources(g.rep, g.sources, r)
	}

	out := make([]*model.Report, len(groups))
	for i, g := range groups {
		out[i] = g.rep
	}
	return out
}

func (m *Merger) authoritative(r *model.Report) bool {
	for _, a := range m.authorities {
		if r.AnalyzerName != a.analyzer {
			continue
		}
		if ok, err := path.Match(a.pattern, r.CheckerName); err == nil && ok {
			return true
		}
	}
	return false
}

func addSources(rep *model.Report, seen map[string]struct{}, from *model.Report) {
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		rep.Sources = append(rep.Sources, s)
	}
	for _, s := range from.Sources {
		add(s)
	}
	add(from.SourceFile)
}
