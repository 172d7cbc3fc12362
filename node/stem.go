package node

import "strconv"

// NewStem creates a new Stem instance with the provided stem, the first counter
// value to try and namespace of taken names.
// The nil namespace is treated as a free namespace, meaning all names are available.
func NewStem(stem string, counter int, namespace map[string]struct{}) *Stem {
	return &Stem{
		taken: namespace,
		stem:  stem,
		next:  counter,
	}
}

// Stem generates names "<stem><n>" from a monotonically increasing counter.
// A counter value whose name is already taken is consumed and skipped.
type Stem struct {
	taken map[string]struct{}
	stem  string
	next  int
}

func (s *Stem) Next() string {
	if s.taken == nil {
		s.taken = make(map[string]struct{})
	}

	for {
		name := s.stem + strconv.Itoa(s.next)
		s.next++

		if _, ok := s.taken[name]; !ok {
			s.taken[name] = struct{}{}
			return name
		}
	}
}

// Counter returns the next counter value to be tried.
func (s *Stem) Counter() int {
	return s.next
}
