package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/weft/pkg/dsl"
)

// ErrUnknownStatement is returned for a statement with no recognized keyword
// or with more than one.
var ErrUnknownStatement = errors.New("unknown statement")

// Script is a decoded configuration.
type Script struct {
	Name       string      `yaml:"name,omitempty" json:"name,omitempty"`
	Statements []Statement `yaml:"statements" json:"statements"`

	// File is used in locations; it is not part of the document.
	File string `yaml:"-" json:"-"`
}

// Statement is one declaration. Exactly one keyword field is set:
// element, elementclass, connect, chain, tunnel, require, define or archive.
type Statement struct {
	Line int `yaml:"-" json:"-"`

	Element string `yaml:"element,omitempty" json:"element,omitempty"`
	Class   string `yaml:"class,omitempty" json:"class,omitempty"`
	Config  string `yaml:"config,omitempty" json:"config,omitempty"`

	ElementClass string      `yaml:"elementclass,omitempty" json:"elementclass,omitempty"`
	Synonym      string      `yaml:"synonym,omitempty" json:"synonym,omitempty"`
	Formals      []string    `yaml:"formals,omitempty" json:"formals,omitempty"`
	Body         []Statement `yaml:"body,omitempty" json:"body,omitempty"`

	Connect *Connect `yaml:"connect,omitempty" json:"connect,omitempty"`
	Chain   []string `yaml:"chain,omitempty" json:"chain,omitempty"`
	Tunnel  *Tunnel  `yaml:"tunnel,omitempty" json:"tunnel,omitempty"`
	Require []string `yaml:"require,omitempty" json:"require,omitempty"`
	Define  *Define  `yaml:"define,omitempty" json:"define,omitempty"`
	Archive *Archive `yaml:"archive,omitempty" json:"archive,omitempty"`
}

// Connect links output port Out of From to input port In of To. Ports
// default to 0.
type Connect struct {
	From string `yaml:"from" json:"from"`
	Out  int    `yaml:"out,omitempty" json:"out,omitempty"`
	To   string `yaml:"to" json:"to"`
	In   int    `yaml:"in,omitempty" json:"in,omitempty"`
}

// Tunnel declares a connection tunnel: what enters In leaves from Out.
type Tunnel struct {
	In  string `yaml:"in" json:"in"`
	Out string `yaml:"out" json:"out"`
}

// Define declares a top-level parameter with its default value.
type Define struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// Archive attaches a named blob. Data is stored as written.
type Archive struct {
	Name string `yaml:"name" json:"name"`
	Data string `yaml:"data" json:"data"`
}

// UnmarshalYAML records the statement's line.
func (s *Statement) UnmarshalYAML(node *yaml.Node) error {
	type plain Statement
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Statement(p)
	s.Line = node.Line
	return nil
}

// Keyword returns the statement kind.
func (s *Statement) Keyword() (string, error) {
	var kinds []string
	add := func(set bool, kind string) {
		if set {
			kinds = append(kinds, kind)
		}
	}
	add(s.Element != "" || (s.Class != "" && s.ElementClass == ""), "element")
	add(s.ElementClass != "", "elementclass")
	add(s.Connect != nil, "connect")
	add(len(s.Chain) > 0, "chain")
	add(s.Tunnel != nil, "tunnel")
	add(len(s.Require) > 0, "require")
	add(s.Define != nil, "define")
	add(s.Archive != nil, "archive")
	switch len(kinds) {
	case 1:
		return kinds[0], nil
	case 0:
		return "", fmt.Errorf("line %d: %w", s.Line, ErrUnknownStatement)
	}
	return "", fmt.Errorf("line %d: %w: combines %s", s.Line, ErrUnknownStatement, strings.Join(kinds, ", "))
}

// Decode parses a script. JSON documents are accepted as YAML.
func Decode(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := validate(s.Statements); err != nil {
		return nil, err
	}
	return &s, nil
}

func validate(stmts []Statement) error {
	for i := range stmts {
		if _, err := stmts[i].Keyword(); err != nil {
			return err
		}
		if err := validate(stmts[i].Body); err != nil {
			return err
		}
	}
	return nil
}

// DecodeFile reads and parses a script file.
func DecodeFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, err
	}
	s.File = filepath.Base(path)
	return s, nil
}

// Apply replays the statements against b in order.
func (s *Script) Apply(b *dsl.Builder) error {
	return apply(b, s.File, s.Statements)
}

func apply(b *dsl.Builder, file string, stmts []Statement) error {
	for i := range stmts {
		st := &stmts[i]
		kind, err := st.Keyword()
		if err != nil {
			return err
		}
		b.At(file, st.Line)
		switch kind {
		case "element":
			if len(st.Body) > 0 {
				body := b.Class("", st.Formals...)
				if err := apply(body, file, st.Body); err != nil {
					return err
				}
				body.End()
				b.At(file, st.Line).AddClass(st.Element, body.Compound(), st.Config)
				continue
			}
			b.Add(st.Element, st.Class, st.Config)
		case "elementclass":
			if st.Synonym != "" {
				b.Synonym(st.ElementClass, st.Synonym)
				continue
			}
			body := b.Class(st.ElementClass, st.Formals...)
			if err := apply(body, file, st.Body); err != nil {
				return err
			}
			body.End()
		case "connect":
			b.Connect(st.Connect.From, st.Connect.Out, st.Connect.To, st.Connect.In)
		case "chain":
			names := make([]string, len(st.Chain))
			for j, item := range st.Chain {
				names[j] = declare(b, item)
			}
			b.Chain(names...)
		case "tunnel":
			b.Tunnel(st.Tunnel.In, st.Tunnel.Out)
		case "require":
			b.Require(st.Require...)
		case "define":
			b.Define(st.Define.Name, st.Define.Value)
		case "archive":
			b.Archive(st.Archive.Name, []byte(st.Archive.Data))
		}
	}
	return nil
}

// declare handles an inline "name :: Class(config)" chain entry and returns
// the element name. Plain names are returned unchanged.
func declare(b *dsl.Builder, item string) string {
	name, decl, ok := strings.Cut(item, "::")
	if !ok {
		return strings.TrimSpace(item)
	}
	class, config := splitCall(strings.TrimSpace(decl))
	return b.Add(strings.TrimSpace(name), class, config).Name()
}

// splitCall splits "Class(config)" into its parts.
func splitCall(s string) (class, config string) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return s, ""
	}
	return strings.TrimSpace(s[:open]), strings.TrimSpace(s[open+1 : len(s)-1])
}
