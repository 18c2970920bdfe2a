/*
Package domain contains the value types shared by every stage of the weft compiler.

It is kept free of I/O and of graph bookkeeping so that adapters (element map
sources, result stores, transports) can depend on it without pulling in the
compiler itself.

# Key Entities

  - Location: a source position attached to declarations and diagnostics.
  - Traits: the metadata published for a primitive element class (port count,
    processing code, flow code, flags, requirements and provisions).
*/
package domain
