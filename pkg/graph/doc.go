/*
Package graph is the intermediate representation of a dataflow configuration.

A Graph owns an arena of elements, an arena of connections indexed by source
and destination, and a table of locally declared classes. Identifiers are
generation checked: a NodeID kept across a KillNode/reuse or a Compact is
rejected with domain.ErrStaleID rather than silently addressing a different
element.

# Classes

Every element has a Class. Primitive classes take their traits from the
element map; a Synonym forwards to another class; the Tunnel class marks the
boundary ports of a compound; a Compound is itself a Graph with formal
parameters. Compounds of the same name form an overload chain, and Resolve
picks the candidate whose formals and boundary arity match a call site.

# Flattening

Flatten returns a copy of the graph in which every compound instance has been
replaced by the contents of its class, parameters substituted lexically, and
every tunnel removed. The receiver is never modified. If any error was
reported along the way Flatten returns nil and a *diag.AggregateError.
*/
package graph
