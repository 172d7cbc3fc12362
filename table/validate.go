package table

import (
	"fmt"
	"reflect"

	"datatables/internal/diagnostic"
	"datatables/node"
	"datatables/primitive"
)

// Validate reports whether rows of the schema type can be edited. Errors
// block editing: the type is missing, is not a row, or has a member whose
// shape cannot be stored. Warnings flag data that will be dropped on save,
// such as maps with unsupported keys.
func (s *Service) Validate(schema string) *diagnostic.Diagnostics {
	t, diags, err := s.resolve(schema)
	if err != nil {
		return diags
	}

	var dealer node.Dealer
	dealer.Needs(t)

	for rt, ok := dealer.NextNeeds(); ok; rt, ok = dealer.NextNeeds() {
		desc := s.reg.Describe(rt)
		for i := range desc.Members {
			m := &desc.Members[i]
			if !m.Serialized() {
				continue
			}
			s.validateSlot(diags, &dealer, m.Type, desc.Name, m.WireName)
		}
	}

	return diags
}

func (s *Service) validateSlot(diags *diagnostic.Diagnostics, dealer *node.Dealer, t reflect.Type, owner, path string) {
	switch s.reg.Shape(t) {
	case node.DispatcherPrimitive, node.DispatcherOpaque:
	case node.DispatcherSlice:
		s.validateSlot(diags, dealer, t.Elem(), owner, path+"[]")
	case node.DispatcherMap:
		if !primitive.FromReflectType(t.Key()).IsKeyDomain() {
			diags.AddWarning(diagnostic.CodeUnsupportedKey,
				fmt.Sprintf("map key %s is not a string or number, the map is saved empty", node.TypeString(t.Key())), owner, path)
		}
		s.validateSlot(diags, dealer, t.Elem(), owner, path+"{}")
	case node.DispatcherStruct, node.DispatcherPointer:
		dealer.Needs(t)
	case node.DispatcherInterface:
		if t.NumMethod() == 0 {
			return
		}
		impls := s.reg.Implementations(t)
		if len(impls) == 0 {
			diags.AddWarning(diagnostic.CodeUnknownType,
				"no registered type implements "+node.TypeString(t), owner, path)
		}
		for _, impl := range impls {
			dealer.Needs(impl)
		}
	default:
		diags.AddError(diagnostic.CodeUnsupportedShape,
			"member type "+node.TypeString(t)+" is not supported", owner, path)
	}
}
