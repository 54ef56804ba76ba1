package match

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/sophialabs/apicover/internal/domain/contract"
)

// selectsRootField reports whether an operation of the given kind in the
// document selects field at its top level with an argument list or a
// selection set. parsed is false when text is not a valid document.
func selectsRootField(text string, kind contract.OperationKind, field string) (selected, parsed bool) {
	doc, err := parser.ParseQuery(&ast.Source{Input: text})
	if err != nil {
		return false, false
	}
	for _, op := range doc.Operations {
		if string(op.Operation) != string(kind) {
			continue
		}
		if hasRootField(op.SelectionSet, doc.Fragments, field, map[string]bool{}) {
			return true, true
		}
	}
	return false, true
}

func hasRootField(set ast.SelectionSet, fragments ast.FragmentDefinitionList, field string, seen map[string]bool) bool {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			if s.Name == field && (len(s.Arguments) > 0 || len(s.SelectionSet) > 0) {
				return true
			}
		case *ast.InlineFragment:
			if hasRootField(s.SelectionSet, fragments, field, seen) {
				return true
			}
		case *ast.FragmentSpread:
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			if def := fragments.ForName(s.Name); def != nil && hasRootField(def.SelectionSet, fragments, field, seen) {
				return true
			}
		}
	}
	return false
}
