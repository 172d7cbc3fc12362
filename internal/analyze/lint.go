package analyze

import (
	"cmp"
	"fmt"
	"go/types"
	"slices"

	"datatables/internal/diagnostic"
)

// Rows returns the row types of the loaded packages, sorted by name.
func (a *Analyzer) Rows() []*TypeInfo {
	var rows []*TypeInfo
	for _, pkg := range a.graph.Packages {
		for _, id := range pkg.Types {
			t := a.graph.Types[id]
			if t.Kind == TypeKindStruct && a.isRow(t) {
				rows = append(rows, t)
			}
		}
	}

	slices.SortFunc(rows, func(x, y *TypeInfo) int {
		return cmp.Or(cmp.Compare(x.ID.PkgPath, y.ID.PkgPath), cmp.Compare(x.ID.Name, y.ID.Name))
	})

	return rows
}

func (a *Analyzer) isRow(t *TypeInfo) bool {
	for _, f := range t.Fields {
		if !f.Embedded {
			continue
		}
		ft := f.Type
		if ft.Kind == TypeKindPointer {
			ft = ft.ElemType
		}
		if ft.ID == a.rowBase {
			return true
		}
	}

	return false
}

// Lint reports the stored members of every row type that a table file
// cannot hold. Channels, funcs, arrays and complex numbers are errors;
// maps keyed by anything but strings and numbers are warnings, since they
// load and save as empty maps.
func (a *Analyzer) Lint() *diagnostic.Diagnostics {
	diags := &diagnostic.Diagnostics{}

	for _, row := range a.Rows() {
		l := linter{diags: diags, owner: row.ID.String(), seen: map[*TypeInfo]bool{}}
		l.fields(row, NewTypePath(""))
	}

	return diags
}

type linter struct {
	diags *diagnostic.Diagnostics
	owner string
	seen  map[*TypeInfo]bool
}

func (l *linter) fields(t *TypeInfo, path *TypePath) {
	if l.seen[t] {
		return
	}
	l.seen[t] = true
	defer delete(l.seen, t)

	for i := range t.Fields {
		f := &t.Fields[i]
		if !f.Stored() {
			continue
		}
		if f.Embedded {
			l.slot(f.Type, path)
			continue
		}
		l.slot(f.Type, path.Field(f.WireName()))
	}
}

func (l *linter) slot(t *TypeInfo, path *TypePath) {
	if t == nil {
		return
	}

	switch t.Kind {
	case TypeKindBasic:
		if b, ok := t.GoType.(*types.Basic); ok && b.Info()&types.IsComplex != 0 {
			l.unsupported(t, path, "complex numbers")
		}
	case TypeKindAlias:
		l.slot(t.Underlying, path)
	case TypeKindStruct:
		l.fields(t, path)
	case TypeKindPointer:
		l.slot(t.ElemType, path)
	case TypeKindSlice:
		l.slot(t.ElemType, path.Slice())
	case TypeKindMap:
		if !keyDomain(t.KeyType) {
			l.diags.AddWarning(diagnostic.CodeUnsupportedKey,
				fmt.Sprintf("map key %s is not a string or number, the map is saved empty", TypeString(t.KeyType)),
				l.owner, path.String())
		}
		l.slot(t.ElemType, path.Map())
	case TypeKindArray:
		l.unsupported(t, path, "arrays")
	case TypeKindChan:
		l.unsupported(t, path, "channels")
	case TypeKindFunc:
		l.unsupported(t, path, "funcs")
	case TypeKindInterface, TypeKindExternal, TypeKindUnknown:
	}
}

func (l *linter) unsupported(t *TypeInfo, path *TypePath, what string) {
	l.diags.AddError(diagnostic.CodeUnsupportedShape,
		fmt.Sprintf("%s cannot be stored: %s are not supported", TypeString(t), what),
		l.owner, path.String())
}

func keyDomain(t *TypeInfo) bool {
	for t != nil && t.Kind == TypeKindAlias {
		t = t.Underlying
	}
	if t == nil || t.Kind != TypeKindBasic {
		return false
	}

	b, ok := t.GoType.(*types.Basic)

	return ok && b.Info()&(types.IsInteger|types.IsFloat|types.IsString) != 0
}
