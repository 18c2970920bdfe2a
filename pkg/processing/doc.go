/*
Package processing infers the push or pull discipline of every port of a
flattened graph and answers flow reachability queries over it.

Each element starts from the processing code of its class, such as "h/l" or
"a/ah": 'h' is push, 'l' is pull and 'a' is agnostic, inputs before the
slash and outputs after it, with the last letter repeating. Agnostic ports
adopt the discipline of the port across each connection until nothing
changes. A push port wired to a pull port is a contradiction; both ends are
marked Error and the pass carries on so that every contradiction is
reported at once. Ports still agnostic at the end become push.
*/
package processing
