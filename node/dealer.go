package node

import "reflect"

// Dealer is a worklist of types to visit: each type is handed out at most once.
type Dealer struct {
	needs []reflect.Type
	done  map[reflect.Type]struct{}
}

func (d *Dealer) NextNeeds() (t reflect.Type, ok bool) {
	for len(d.needs) > 0 {
		t = d.needs[0]
		d.needs = d.needs[1:]

		if _, exists := d.done[t]; !exists {
			d.Done(t)

			return t, true
		}
	}

	return nil, false
}

func (d *Dealer) Needs(t reflect.Type) {
	if t == nil {
		return
	}

	if _, exists := d.done[t]; !exists {
		d.needs = append(d.needs, t)
	}
}

func (d *Dealer) Done(t reflect.Type) {
	if d.done == nil {
		d.done = make(map[reflect.Type]struct{})
	}

	d.done[t] = struct{}{}
}

// Seen reports whether t was already handed out or marked done.
func (d *Dealer) Seen(t reflect.Type) bool {
	_, ok := d.done[t]
	return ok
}
