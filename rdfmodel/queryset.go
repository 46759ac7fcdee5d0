package rdfmodel

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/CaliLuke/go-sparqlorm/ast"
)

// QuerySet describes entities to fetch: a root type, an optional bound root
// instance, a navigation path, and extra fields to prefetch. Refining
// methods return new QuerySets; the receiver is never modified. Results are
// fetched on first access and kept for the life of the QuerySet.
type QuerySet struct {
	db       *Database
	root     *EntityType
	instance *Entity

	path    []string
	nav     []Field
	primary *EntityType // nil when the path ends on raw values

	extras  []string
	filters []Filter
	order   []OrderClause
	limit   int
	offset  int

	cell *realized
}

// OrderClause specifies a field name and sort direction for primary results.
type OrderClause struct {
	Field string
	Desc  bool
}

func newQuerySet(db *Database, root *EntityType, instance *Entity) *QuerySet {
	return &QuerySet{db: db, root: root, instance: instance, primary: root, cell: &realized{}}
}

func (qs *QuerySet) clone() *QuerySet {
	c := *qs
	c.path = slices.Clone(qs.path)
	c.nav = slices.Clone(qs.nav)
	c.extras = slices.Clone(qs.extras)
	c.filters = slices.Clone(qs.filters)
	c.order = slices.Clone(qs.order)
	c.cell = &realized{}
	return &c
}

// Root returns the root entity type.
func (qs *QuerySet) Root() *EntityType { return qs.root }

// ResultType returns the entity type of the primary results, or nil when
// they are raw values.
func (qs *QuerySet) ResultType() *EntityType { return qs.primary }

// Path returns the navigation path.
func (qs *QuerySet) Path() []string { return slices.Clone(qs.path) }

// Extras returns the normalized extra-field paths in sorted order.
func (qs *QuerySet) Extras() []string { return slices.Clone(qs.extras) }

// Navigate follows fields from the current primary results. Names may be
// dotted or __-separated paths.
func (qs *QuerySet) Navigate(names ...string) (*QuerySet, error) {
	if len(qs.extras) > 0 || len(qs.filters) > 0 || len(qs.order) > 0 {
		return nil, &FieldError{TypeName: typeName(qs.primary), Path: strings.Join(names, PathSeparator),
			Message: "cannot navigate after fields, filters, or ordering"}
	}
	c := qs.clone()
	for _, name := range names {
		segs, err := splitPath(name)
		if err != nil {
			return nil, err
		}
		for _, seg := range segs {
			if c.primary == nil {
				return nil, &FieldError{Path: strings.Join(append(c.path, seg), PathSeparator),
					Message: "cannot navigate past a field with no result type"}
			}
			f, ok := c.primary.Field(seg)
			if !ok {
				return nil, &FieldError{TypeName: c.primary.name, Path: seg, Message: "no such field"}
			}
			c.path = append(c.path, seg)
			c.nav = append(c.nav, f)
			c.primary = f.ResultType()
		}
	}
	return c, nil
}

// Fields requests extra fields to be fetched with each primary result.
// Paths may be dotted or __-separated; every segment must resolve on the
// type reached by the preceding one. Requesting a path twice is a no-op.
func (qs *QuerySet) Fields(paths ...string) (*QuerySet, error) {
	c := qs.clone()
	for _, p := range paths {
		segs, err := splitPath(p)
		if err != nil {
			return nil, err
		}
		if _, err := resolvePath(qs.primary, segs); err != nil {
			return nil, err
		}
		norm := strings.Join(segs, PathSeparator)
		if !slices.Contains(c.extras, norm) {
			c.extras = append(c.extras, norm)
		}
	}
	sort.Strings(c.extras)
	return c, nil
}

// Filter adds conditions on the primary results. Multiple calls combine with AND.
func (qs *QuerySet) Filter(filters ...Filter) (*QuerySet, error) {
	for _, f := range filters {
		var scratch ast.Group
		if err := f.Apply(&scratch, qs.primary, ast.Var("check")); err != nil {
			return nil, err
		}
	}
	c := qs.clone()
	c.filters = append(c.filters, filters...)
	return c, nil
}

// OrderAsc sorts primary results by a single-valued field, ascending.
func (qs *QuerySet) OrderAsc(field string) (*QuerySet, error) {
	return qs.orderBy(field, false)
}

// OrderDesc sorts primary results by a single-valued field, descending.
func (qs *QuerySet) OrderDesc(field string) (*QuerySet, error) {
	return qs.orderBy(field, true)
}

func (qs *QuerySet) orderBy(field string, desc bool) (*QuerySet, error) {
	f, err := resolveFilterField(qs.primary, field)
	if err != nil {
		return nil, err
	}
	if f.Cardinality() != Single {
		return nil, &FieldError{TypeName: qs.primary.name, Path: field, Message: "cannot order by a multi-valued field"}
	}
	c := qs.clone()
	c.order = append(c.order, OrderClause{Field: field, Desc: desc})
	return c, nil
}

// Limit restricts the number of primary results.
func (qs *QuerySet) Limit(n int) *QuerySet {
	c := qs.clone()
	c.limit = n
	return c
}

// Offset skips the first n primary results.
func (qs *QuerySet) Offset(n int) *QuerySet {
	c := qs.clone()
	c.offset = n
	return c
}

// Equivalent reports whether two QuerySets describe the same request: root
// type, bound instance, navigation path, extra fields, and modifiers.
func (qs *QuerySet) Equivalent(other *QuerySet) bool {
	if qs.root != other.root || !slices.Equal(qs.path, other.path) || !slices.Equal(qs.extras, other.extras) {
		return false
	}
	if (qs.instance == nil) != (other.instance == nil) {
		return false
	}
	if qs.instance != nil && !qs.instance.Equal(other.instance) {
		return false
	}
	if qs.limit != other.limit || qs.offset != other.offset || !slices.Equal(qs.order, other.order) {
		return false
	}
	return len(qs.filters) == 0 && len(other.filters) == 0
}

// --- Realization ---

// All returns every primary result: *Entity values, or raw values when the
// navigation path ends on a field with no result type.
func (qs *QuerySet) All(ctx context.Context) ([]any, error) {
	return qs.cell.get(func() ([]any, error) { return qs.realize(ctx) })
}

// Entities returns the primary results as entities.
func (qs *QuerySet) Entities(ctx context.Context) ([]*Entity, error) {
	if qs.primary == nil {
		return nil, &FieldError{Path: strings.Join(qs.path, PathSeparator), Message: "results are raw values, not entities"}
	}
	items, err := qs.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Entity, 0, len(items))
	for _, it := range items {
		if e, ok := it.(*Entity); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Index returns the i-th primary result.
func (qs *QuerySet) Index(ctx context.Context, i int) (any, error) {
	items, err := qs.All(ctx)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(items) {
		return nil, fmt.Errorf("index %d out of range [0,%d)", i, len(items))
	}
	return items[i], nil
}

// Len returns the number of primary results.
func (qs *QuerySet) Len(ctx context.Context) (int, error) {
	items, err := qs.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// First returns the first primary result, or nil if there is none.
// An unrealized QuerySet is queried with LIMIT 1.
func (qs *QuerySet) First(ctx context.Context) (any, error) {
	if items, ok := qs.cell.peek(); ok {
		if len(items) == 0 {
			return nil, nil
		}
		return items[0], nil
	}
	items, err := qs.Limit(1).All(ctx)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

// Count returns the number of distinct primary results without fetching them.
func (qs *QuerySet) Count(ctx context.Context) (int64, error) {
	p, err := newPlan(qs)
	if err != nil {
		return 0, err
	}
	q, err := p.countQuery()
	if err != nil {
		return 0, err
	}
	rows, err := qs.db.ExecuteSelect(ctx, q, p.bindings())
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", qs.root.name, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	switch n := NativeValue(rows[0]["count"]).(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("count %s: unexpected count value %v", qs.root.name, rows[0]["count"])
	}
}

// Plan returns the queries a realization would run, one per query target.
func (qs *QuerySet) Plan() ([]PlannedQuery, error) {
	p, err := newPlan(qs)
	if err != nil {
		return nil, err
	}
	return p.queries()
}

// realized is a single-assignment result cell. Failed realizations are not
// stored, so a later access retries.
type realized struct {
	mu    sync.Mutex
	done  bool
	items []any
}

func (r *realized) get(fn func() ([]any, error)) ([]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return r.items, nil
	}
	items, err := fn()
	if err != nil {
		return nil, err
	}
	r.items, r.done = items, true
	return items, nil
}

func (r *realized) peek() ([]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items, r.done
}

// --- Paths ---

func splitPath(p string) ([]string, error) {
	norm := strings.ReplaceAll(p, ".", PathSeparator)
	if norm == "" {
		return nil, &FieldError{Path: p, Message: "empty path"}
	}
	segs := strings.Split(norm, PathSeparator)
	for _, s := range segs {
		if s == "" || strings.HasPrefix(s, "_") || strings.HasSuffix(s, "_") {
			return nil, &FieldError{Path: p, Message: "malformed path"}
		}
	}
	return segs, nil
}

// resolvePath resolves each segment on the type reached by the previous one.
func resolvePath(t *EntityType, segs []string) ([]Field, error) {
	fields := make([]Field, 0, len(segs))
	cur := t
	for i, seg := range segs {
		if cur == nil {
			msg := "results are raw values, not entities"
			if i > 0 {
				msg = fmt.Sprintf("%q has no result type", segs[i-1])
			}
			return nil, &FieldError{Path: strings.Join(segs[:i+1], PathSeparator), Message: msg}
		}
		f, ok := cur.Field(seg)
		if !ok {
			return nil, &FieldError{TypeName: cur.name, Path: strings.Join(segs[:i+1], PathSeparator), Message: "no such field"}
		}
		fields = append(fields, f)
		cur = f.ResultType()
	}
	return fields, nil
}

func typeName(t *EntityType) string {
	if t == nil {
		return ""
	}
	return t.name
}
