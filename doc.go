/*
Package weft compiles modular dataflow router configurations.

A configuration is a graph of elements joined by connections between
numbered ports. Compound element classes group a subgraph behind a boundary
with formal parameters; weft inlines them into one flat graph of primitive
elements, checks it against an element map, and infers whether each port
moves packets by push or by pull.

# Pipeline

  - Build: declarations arrive through pkg/dsl, either programmatically or
    replayed from a YAML/JSON script (pkg/script).
  - Flatten: compound instances are expanded with lexically scoped
    parameters and connection tunnels are removed.
  - Requirements: configuration and class requirements are checked against
    the element map's provisions.
  - Processing: port disciplines are unified to a fixpoint and connections
    are checked.
  - Export: the flat graph is rendered as a document (pkg/export).

Problems are reported as diagnostics (pkg/diag). A compilation succeeds when
no error-severity diagnostic was reported.

# Usage

	c, err := weft.New("./elements.yaml")
	if err != nil {
		log.Fatal(err)
	}

	b := c.NewBuilder("router")
	b.Add("src", "FromDevice", "eth0").To("q")
	b.Add("q", "Queue", "100").To("sink")
	b.Add("sink", "ToDevice", "eth1")

	res, err := c.Build(ctx, b)
	if err != nil {
		for _, d := range diag.Diagnostics(err) {
			log.Println(d)
		}
		return
	}
	log.Println(res.Document.Elements)
*/
package weft
