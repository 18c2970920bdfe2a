/*
Package dsl provides a Go DSL for programmatically constructing weft graphs.

It issues the same declarations a configuration parser would, in source
order: elements, connections, tunnels, compound classes with formal
parameters, synonyms, requirements and archives. Connections are recorded
and made when their scope closes, so they may refer to elements declared
further down.

Example usage:

	b := dsl.New("router", dsl.WithLibrary(lib))

	body := b.Class("Shaper", "rate=10")
	body.Add("q", "Queue", "$rate").From("input", 0, 0).To("output")
	body.End()

	b.Add("src", "FromDevice", "eth0").To("s")
	b.Add("s", "Shaper", "100").To("sink")
	b.Add("sink", "Discard")

	g, err := b.Build()
*/
package dsl
