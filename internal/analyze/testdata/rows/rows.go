package rows

import "time"

type RowBase struct {
	Key string
}

type Point struct{ X, Y int }

type Level int

type Handle interface{ Path() string }

// Good uses only storable members.
type Good struct {
	RowBase
	Name    string
	Level   Level
	Stats   map[string]int
	ByLevel map[Level][]string
	Points  []*Point
	Icon    Handle
	Seen    time.Time
	Skip    chan int `dt:"-"`
	Temp    func()   `dt:",hidden"`
}

// Broken has a member of every unsupported shape.
type Broken struct {
	*RowBase
	Updates chan int
	OnLoad  func() error
	Grid    [4]int
	Phase   complex128
	ByPoint map[Point]int
	Nested  []Inner `dt:"Children"`
}

type Inner struct {
	Name  string
	Next  *Inner
	Flags map[bool]string
}

// Plain does not embed RowBase and is never linted.
type Plain struct {
	Updates chan int
}
