package ast

import (
	"strings"
	"testing"

	"github.com/cayleygraph/quad"
)

func TestRenameVars(t *testing.T) {
	inner := SelectDistinct(Var("a"))
	inner.Append(Edge(Var("a"), quad.IRI("http://example.org/p"), Var("b")), false)
	inner.OrderBy = []OrderCondition{Desc(Var("b"))}

	q := Select(Var("a"), Alias(Count(Var("b"), true), Var("n")))
	q.Append(SubSelect{Query: inner}, false)
	q.Append(Or(All(Edge(Var("a"), "a", Var("b")))), false)
	q.Append(Where(AllOf(Cmp(Var("b"), ">", 3), Negate(IsBound(Var("c"))),
		FuncCall("CONTAINS", Var("b"), "x"))), false)
	q.Append(Where(NotExists(Edge(Var("c"), "a", Var("a")))), false)
	q.OrderBy = []OrderCondition{Asc(Var("a"))}

	before := (&Compiler{}).MustCompile(inner)
	RenameVars(q, func(v Var) Var { return Var(strings.ToUpper(string(v))) })

	got := (&Compiler{}).MustCompile(q)
	for _, lower := range []string{"?a", "?b", "?c", "?n"} {
		if strings.Contains(got, lower+" ") || strings.Contains(got, lower+")") {
			t.Errorf("%s survived renaming:\n%s", lower, got)
		}
	}
	for _, want := range []string{"(COUNT(DISTINCT ?B) AS ?N)", "{ SELECT DISTINCT ?A", "DESC(?B)", "BOUND(?C)", "ORDER BY ASC(?A)"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if after := (&Compiler{}).MustCompile(inner); after != before {
		t.Errorf("sub-select query was mutated:\n%s", after)
	}
}
