package rdfmodel

import (
	"context"
	"fmt"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/CaliLuke/go-sparqlorm/ast"
)

// realize plans, executes, groups, and maps a QuerySet.
func (qs *QuerySet) realize(ctx context.Context) ([]any, error) {
	p, err := newPlan(qs)
	if err != nil {
		return nil, err
	}
	planned, err := p.queries()
	if err != nil {
		return nil, err
	}

	log := qs.db.logger.With("realization", uuid.NewString(), "root", qs.root.name)
	log.Debug("realizing queryset", "path", strings.Join(qs.path, PathSeparator),
		"extras", len(qs.extras), "queries", len(planned))

	results, err := qs.db.executeAll(ctx, planned)
	if err != nil {
		log.Warn("queryset realization failed", "error", err)
		return nil, err
	}

	m := newMapper(p, qs.db)
	for i, pq := range planned {
		m.ingest(pq.Target, results[i])
	}
	return m.build(), nil
}

// executeAll runs the planned queries, sequentially or through a bounded
// errgroup. Any failure fails the whole set.
func (db *Database) executeAll(ctx context.Context, planned []PlannedQuery) ([][]Row, error) {
	results := make([][]Row, len(planned))
	if db.parallel <= 1 || len(planned) == 1 {
		for i, pq := range planned {
			rows, err := db.ExecuteSelect(ctx, pq.Select, pq.Bindings)
			if err != nil {
				return nil, &QueryError{Target: pq.Target, Cause: err}
			}
			results[i] = rows
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(db.parallel)
	for i, pq := range planned {
		g.Go(func() error {
			rows, err := db.ExecuteSelect(gctx, pq.Select, pq.Bindings)
			if err != nil {
				return &QueryError{Target: pq.Target, Cause: err}
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// mapper groups rows by (owning path, identity tuple) and rebuilds entities.
// An identity tuple lists the primary result followed by each object on the
// path down to the owner.
type mapper struct {
	plan *plan
	db   *Database

	primaries   []quad.Value
	seenPrimary map[string]bool

	// values holds single-valued fields keyed by owner path and tuple.
	values map[string]map[string]quad.Value
	// members holds multi-valued field members keyed by field path and the
	// owner's tuple, in first-seen order.
	members    map[string][]quad.Value
	seenMember map[string]bool
}

func newMapper(p *plan, db *Database) *mapper {
	return &mapper{
		plan:        p,
		db:          db,
		seenPrimary: make(map[string]bool),
		values:      make(map[string]map[string]quad.Value),
		members:     make(map[string][]quad.Value),
		seenMember:  make(map[string]bool),
	}
}

func (m *mapper) ingest(target string, rows []Row) {
	p := m.plan
	var segs []string
	if target != "" {
		segs = strings.Split(target, PathSeparator)
	}

rows:
	for _, row := range rows {
		pv := row[p.primary.Name()]
		if pv == nil && len(p.qs.nav) == 0 && p.qs.instance != nil {
			pv = p.qs.instance.ref
		}
		if pv == nil {
			continue
		}
		if target == "" {
			if k := identityKey(pv); !m.seenPrimary[k] {
				m.seenPrimary[k] = true
				m.primaries = append(m.primaries, pv)
			}
		}

		tuple := []quad.Value{pv}
		parent := ""
		for _, seg := range segs {
			path := joinPath(parent, seg)
			v := row[p.varFor(path).Name()]
			if v == nil {
				continue rows
			}
			if p.nodes[path].field.Cardinality() == Multiple {
				m.addMember(path, tuple, v)
			} else {
				m.setValue(parent, tuple, seg, v)
			}
			tuple = extend(tuple, v)
			parent = path
		}
		m.ingestOptionals(p.nodes[target], target, tuple, row)
	}
}

func (m *mapper) ingestOptionals(node *pathNode, target string, tuple []quad.Value, row Row) {
	for _, c := range node.children {
		if c.target != target {
			continue
		}
		v := row[m.plan.varFor(c.path).Name()]
		if v == nil {
			continue
		}
		m.setValue(node.path, tuple, c.name, v)
		if len(c.children) > 0 {
			m.ingestOptionals(c, target, extend(tuple, v), row)
		}
	}
}

// setValue records a single-valued field. The first value seen wins.
func (m *mapper) setValue(owner string, tuple []quad.Value, name string, v quad.Value) {
	k := groupKey(owner, tuple)
	g, ok := m.values[k]
	if !ok {
		g = make(map[string]quad.Value)
		m.values[k] = g
	}
	if _, exists := g[name]; !exists {
		g[name] = v
	}
}

func (m *mapper) addMember(path string, tuple []quad.Value, v quad.Value) {
	k := groupKey(path, tuple)
	mk := k + "\x1e" + identityKey(v)
	if m.seenMember[mk] {
		return
	}
	m.seenMember[mk] = true
	m.members[k] = append(m.members[k], v)
}

func (m *mapper) build() []any {
	p := m.plan
	out := make([]any, 0, len(m.primaries))
	for _, pv := range m.primaries {
		var item any
		if len(p.qs.nav) == 0 {
			item = p.qs.root.New(pv)
		} else {
			item = p.qs.nav[len(p.qs.nav)-1].Wrap(pv)
		}
		if e, ok := item.(*Entity); ok {
			e.db = m.db
			m.fill(p.tree, e, []quad.Value{pv})
		}
		out = append(out, item)
	}
	return out
}

// fill sets every requested child field of node on e.
func (m *mapper) fill(node *pathNode, e *Entity, tuple []quad.Value) {
	for _, c := range node.children {
		if c.field.Cardinality() == Multiple {
			list := m.members[groupKey(c.path, tuple)]
			vals := make([]any, 0, len(list))
			for _, v := range list {
				vals = append(vals, m.wrap(c, v, tuple))
			}
			e.set(c.name, vals)
			continue
		}
		v := m.values[groupKey(node.path, tuple)][c.name]
		if v == nil {
			e.set(c.name, nil)
			continue
		}
		e.set(c.name, m.wrap(c, v, tuple))
	}
}

func (m *mapper) wrap(c *pathNode, v quad.Value, tuple []quad.Value) any {
	w := c.field.Wrap(v)
	if sub, ok := w.(*Entity); ok {
		sub.db = m.db
		if len(c.children) > 0 {
			m.fill(c, sub, extend(tuple, v))
		}
	}
	return w
}

func joinPath(parent, seg string) string {
	if parent == "" {
		return seg
	}
	return parent + PathSeparator + seg
}

func extend(tuple []quad.Value, v quad.Value) []quad.Value {
	out := make([]quad.Value, len(tuple), len(tuple)+1)
	copy(out, tuple)
	return append(out, v)
}

func groupKey(path string, tuple []quad.Value) string {
	var b strings.Builder
	b.WriteString(path)
	for _, v := range tuple {
		b.WriteByte(0x1f)
		b.WriteString(identityKey(v))
	}
	return b.String()
}

// identityKey is a canonical string for a term, distinguishing an IRI from a
// literal with the same text.
func identityKey(v quad.Value) string {
	if v == nil {
		return ""
	}
	s, err := ast.FormatValue(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return s
}
