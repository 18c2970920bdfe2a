// Package export renders a flattened graph as a JSON or YAML document.
package export

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/graph"
	"github.com/aretw0/weft/pkg/processing"
)

// Document is the exported form of a compiled configuration.
type Document struct {
	Name         string            `json:"name" yaml:"name"`
	Elements     []Element         `json:"elements" yaml:"elements"`
	Connections  []Connection      `json:"connections" yaml:"connections"`
	Requirements []string          `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Archives     []string          `json:"archives,omitempty" yaml:"archives,omitempty"`
	Diagnostics  []diag.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Element is one exported element.
type Element struct {
	Name       string `json:"name" yaml:"name"`
	Class      string `json:"class" yaml:"class"`
	Config     string `json:"config,omitempty" yaml:"config,omitempty"`
	Inputs     int    `json:"inputs" yaml:"inputs"`
	Outputs    int    `json:"outputs" yaml:"outputs"`
	Processing string `json:"processing,omitempty" yaml:"processing,omitempty"`
	Location   string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Connection is one exported connection, by element name.
type Connection struct {
	From string `json:"from" yaml:"from"`
	Out  int    `json:"out" yaml:"out"`
	To   string `json:"to" yaml:"to"`
	In   int    `json:"in" yaml:"in"`
}

// Build converts g into a Document. res may be nil, in which case no
// processing codes are included.
func Build(g *graph.Graph, res *processing.Result, diags []diag.Diagnostic) *Document {
	doc := &Document{
		Name:         g.Name(),
		Elements:     []Element{},
		Connections:  []Connection{},
		Requirements: g.Requirements(),
		Diagnostics:  diags,
	}
	for _, a := range g.Archives() {
		doc.Archives = append(doc.Archives, a.Name)
	}
	for _, e := range g.Elements() {
		el := Element{
			Name:    e.Name(),
			Class:   e.Class().Name(),
			Config:  e.Config(),
			Inputs:  e.NInputs(),
			Outputs: e.NOutputs(),
		}
		if !e.Location().IsZero() {
			el.Location = e.Location().String()
		}
		if res != nil {
			el.Processing = res.ProcessingCode(e.ID())
		}
		doc.Elements = append(doc.Elements, el)
	}
	for _, c := range g.Connections() {
		from, err := g.Element(c.From().Node)
		if err != nil {
			continue
		}
		to, err := g.Element(c.To().Node)
		if err != nil {
			continue
		}
		doc.Connections = append(doc.Connections, Connection{
			From: from.Name(), Out: c.From().Port,
			To: to.Name(), In: c.To().Port,
		})
	}
	return doc
}

// Format selects the encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Encode renders the document.
func (d *Document) Encode(f Format) ([]byte, error) {
	switch f {
	case JSON:
		return json.MarshalIndent(d, "", "  ")
	case YAML:
		return yaml.Marshal(d)
	}
	return nil, fmt.Errorf("unknown format %q", f)
}

// Decode parses a document in either format.
func Decode(data []byte, f Format) (*Document, error) {
	var d Document
	var err error
	switch f {
	case JSON:
		err = json.Unmarshal(data, &d)
	case YAML:
		err = yaml.Unmarshal(data, &d)
	default:
		err = fmt.Errorf("unknown format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
