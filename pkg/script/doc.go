// Package script reads configurations written as YAML (or JSON) statement
// lists and replays them through a dsl.Builder.
//
// A script looks like:
//
//	name: router
//	statements:
//	  - elementclass: Shaper
//	    formals: ["$rate=10"]
//	    body:
//	      - element: q
//	        class: Queue
//	        config: $rate
//	      - chain: [input, q, output]
//	  - chain: ["src :: FromDevice(eth0)", "s :: Shaper(100)", "sink :: Discard"]
//	  - connect: {from: src, out: 0, to: sink, in: 1}
//	  - require: [linuxmodule]
//
// Chain entries are element names or inline declarations "name :: Class(config)".
// Every statement keeps its line number for diagnostics.
package script
