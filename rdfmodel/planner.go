package rdfmodel

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/CaliLuke/go-sparqlorm/ast"
)

// PlannedQuery is one query of a realization plan.
type PlannedQuery struct {
	// Target is the extra-field path the query fetches rows for; "" is the
	// primary query.
	Target   string
	Select   *ast.SelectQuery
	Bindings map[string]quad.Value
}

// pathNode is one requested extra-field path, including implied prefixes.
type pathNode struct {
	name     string
	path     string
	field    Field
	typ      *EntityType
	target   string
	children []*pathNode
}

type plan struct {
	qs      *QuerySet
	rootVar ast.Var
	primary ast.Var
	tree    *pathNode
	nodes   map[string]*pathNode
	targets []string
}

// newPlan resolves the QuerySet's extra fields into a tree and assigns each
// node its query target: the nearest multi-valued path at or above it, or ""
// when every segment is single-valued.
func newPlan(qs *QuerySet) (*plan, error) {
	if qs.root.Class() == "" && qs.instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnconstrainedRoot, qs.root.name)
	}
	p := &plan{
		qs:      qs,
		rootVar: ast.Var("v0"),
		primary: ast.Var(fmt.Sprintf("v%d", len(qs.nav))),
		tree:    &pathNode{typ: qs.primary},
		nodes:   make(map[string]*pathNode),
	}
	p.nodes[""] = p.tree

	for _, extra := range qs.extras {
		parent := p.tree
		for _, seg := range strings.Split(extra, PathSeparator) {
			path := seg
			if parent.path != "" {
				path = parent.path + PathSeparator + seg
			}
			node, ok := p.nodes[path]
			if !ok {
				if parent.typ == nil {
					return nil, &FieldError{Path: path, Message: "parent has no result type"}
				}
				f, ok := parent.typ.Field(seg)
				if !ok {
					return nil, &FieldError{TypeName: parent.typ.name, Path: path, Message: "no such field"}
				}
				node = &pathNode{name: seg, path: path, field: f, typ: f.ResultType(), target: parent.target}
				if f.Cardinality() == Multiple {
					node.target = path
				}
				parent.children = append(parent.children, node)
				p.nodes[path] = node
			}
			parent = node
		}
	}

	seen := map[string]bool{"": true}
	p.targets = []string{""}
	for _, n := range p.nodes {
		if !seen[n.target] {
			seen[n.target] = true
			p.targets = append(p.targets, n.target)
		}
	}
	sort.Strings(p.targets)
	return p, nil
}

// varFor names the variable bound to the object at path.
func (p *plan) varFor(path string) ast.Var {
	if path == "" {
		return p.primary
	}
	return ast.Var(string(p.primary) + PathSeparator + path)
}

func (p *plan) bindings() map[string]quad.Value {
	if p.qs.instance == nil {
		return nil
	}
	return map[string]quad.Value{p.rootVar.Name(): p.qs.instance.ref}
}

// base adds the root constraint, navigation chain, and filters.
func (p *plan) base(g *ast.Group) error {
	if class := p.qs.root.Class(); class != "" {
		g.Add(ast.Edge(p.rootVar, RDFType, class))
	}
	for i, f := range p.qs.nav {
		f.Compile(g, ast.Var(fmt.Sprintf("v%d", i)), ast.Var(fmt.Sprintf("v%d", i+1)))
	}
	for _, f := range p.qs.filters {
		if err := f.Apply(g, p.qs.primary, p.primary); err != nil {
			return err
		}
	}
	return nil
}

// paged reports whether LIMIT or OFFSET cuts the primary results.
func (p *plan) paged() bool { return p.qs.limit > 0 || p.qs.offset > 0 }

// constrain adds the patterns selecting primary results to g. A paged plan
// picks its page of primaries in a sub-select, so rows multiplied by
// optional extras never count against the limit and every target query
// fetches rows for the same page only.
func (p *plan) constrain(g *ast.Group) error {
	if !p.paged() {
		return p.base(g)
	}
	page := ast.SelectDistinct(p.primary)
	if p.qs.instance != nil && p.rootVar != p.primary {
		// The root binding must reach inside the sub-select.
		page.Project(p.rootVar)
	}
	if err := p.base(&page.Where); err != nil {
		return err
	}
	p.addOrder(page)
	page.Limit = p.qs.limit
	page.Offset = p.qs.offset
	g.Add(ast.SubSelect{Query: page})
	return nil
}

// addOrder binds each ordering field in an OPTIONAL group and sorts on it.
func (p *plan) addOrder(q *ast.SelectQuery) {
	for i, o := range p.qs.order {
		f, _ := p.qs.primary.Field(o.Field)
		v := ast.Var(fmt.Sprintf("ord%d_%s", i, o.Field))
		var opt ast.Group
		f.Compile(&opt, p.primary, v)
		q.Where.AddOptional(opt)
		q.OrderBy = append(q.OrderBy, ast.OrderCondition{Expr: v, Desc: o.Desc})
	}
}

func (p *plan) queries() ([]PlannedQuery, error) {
	out := make([]PlannedQuery, 0, len(p.targets))
	for _, t := range p.targets {
		q, err := p.targetQuery(t)
		if err != nil {
			return nil, err
		}
		out = append(out, PlannedQuery{Target: t, Select: q, Bindings: p.bindings()})
	}
	return out, nil
}

// targetQuery restates the path from the root down to target as required
// patterns and hangs the target's single-valued extras off it as OPTIONAL
// groups. Ordering applies to the primary query only; a page limit reaches
// every target through constrain.
func (p *plan) targetQuery(target string) (*ast.SelectQuery, error) {
	q := ast.SelectDistinct(p.primary)
	if err := p.constrain(&q.Where); err != nil {
		return nil, err
	}

	node := p.tree
	if target != "" {
		parent := p.tree
		for _, seg := range strings.Split(target, PathSeparator) {
			path := seg
			if parent.path != "" {
				path = parent.path + PathSeparator + seg
			}
			node = p.nodes[path]
			node.field.Compile(&q.Where, p.varFor(parent.path), p.varFor(path))
			q.Project(p.varFor(path))
			parent = node
		}
	}
	p.addOptionals(&q.Where, q, node, target)

	if target == "" {
		p.addOrder(q)
	}
	numberScoped(q)
	return q, nil
}

// addOptionals adds an OPTIONAL group for each child of node that rides
// along with target, nesting single-valued descendants inside their parent.
func (p *plan) addOptionals(g *ast.Group, q *ast.SelectQuery, node *pathNode, target string) {
	for _, c := range node.children {
		if c.target != target {
			continue
		}
		var opt ast.Group
		c.field.Compile(&opt, p.varFor(node.path), p.varFor(c.path))
		q.Project(p.varFor(c.path))
		p.addOptionals(&opt, q, c, target)
		g.Add(ast.Optional{Group: opt})
	}
}

func (p *plan) countQuery() (*ast.SelectQuery, error) {
	count := ast.Var("count")
	q := ast.Select(ast.Alias(ast.Count(p.primary, true), count))
	if err := p.base(&q.Where); err != nil {
		return nil, err
	}
	numberScoped(q)
	return q, nil
}

var (
	linkVarPattern   = regexp.MustCompile(`^link_\d+$`)
	filterVarPattern = regexp.MustCompile(`^f\d+_(.+)$`)
)

// numberScoped renumbers chain-link and filter variables by first use, so a
// plan of the same shape always compiles to the same text. Renaming is
// one-to-one, so names stay unique within the query.
func numberScoped(q *ast.SelectQuery) {
	names := make(map[ast.Var]ast.Var)
	var links, filters int
	ast.RenameVars(q, func(v ast.Var) ast.Var {
		if n, ok := names[v]; ok {
			return n
		}
		var n ast.Var
		if linkVarPattern.MatchString(string(v)) {
			links++
			n = ast.Var(fmt.Sprintf("link_%d", links))
		} else if m := filterVarPattern.FindStringSubmatch(string(v)); m != nil {
			filters++
			n = ast.Var(fmt.Sprintf("f%d_%s", filters, m[1]))
		} else {
			return v
		}
		names[v] = n
		return n
	})
}
