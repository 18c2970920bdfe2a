package domain

import "fmt"

// Location is a position in a configuration source.
type Location struct {
	File string `json:"file,omitempty" yaml:"file,omitempty"`
	Line int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// At is shorthand for a Location.
func At(file string, line int) Location {
	return Location{File: file, Line: line}
}

// IsZero reports whether the location carries no information.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0
}

func (l Location) String() string {
	switch {
	case l.IsZero():
		return "<unknown>"
	case l.Line == 0:
		return l.File
	case l.File == "":
		return fmt.Sprintf("line %d", l.Line)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}
