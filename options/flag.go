package options

import "strings"

// FlagEnum is a bitmask of per-member attributes read from struct tags.
type FlagEnum int

const (
	FlagIgnored  FlagEnum = 1 << iota // never serialized nor merged (dt:"-" or json:"-")
	FlagHidden                        // not serialized, still cloned and merged (dt:",hidden")
	FlagAnnotate                      // value and its direct elements always carry a type tag (dt:",annotate")

	FlagAll  = (1 << iota) - 1 // all flags combined
	FlagNone = 0               // no flags set
)

func (f FlagEnum) Has(flag FlagEnum) bool {
	return f&flag == flag
}

func (f FlagEnum) String() string {
	if f == FlagNone {
		return "none"
	}

	var parts []string
	if f.Has(FlagIgnored) {
		parts = append(parts, "ignored")
	}
	if f.Has(FlagHidden) {
		parts = append(parts, "hidden")
	}
	if f.Has(FlagAnnotate) {
		parts = append(parts, "annotate")
	}

	return strings.Join(parts, "|")
}

// ParseTag splits a `dt` tag into the wire name override and the flags.
//
//	dt:"-"             ignored
//	dt:",hidden"       hidden
//	dt:"Alias,annotate" renamed and annotated
func ParseTag(tag string) (name string, flags FlagEnum) {
	if tag == "-" {
		return "", FlagIgnored
	}

	name, rest, _ := strings.Cut(tag, ",")
	for _, opt := range strings.Split(rest, ",") {
		switch strings.TrimSpace(opt) {
		case "hidden":
			flags |= FlagHidden
		case "annotate":
			flags |= FlagAnnotate
		case "ignore":
			flags |= FlagIgnored
		}
	}

	return strings.TrimSpace(name), flags
}
