/*
Package ports defines the driven ports (interfaces) of the weft compiler.

These interfaces decouple the compiler from where element metadata comes from
and from where compiled results are cached, so the same core runs from the
CLI, the HTTP service and the MCP server.

# Key Interfaces

  - TraitsSource: read-only lookup of primitive class traits (the element map).
  - ElementMapLoader: produces an element map from some backend (file, loam, memory).
  - ResultStore: caches exported compilation results by content key.
  - DistributedLocker: coordinates compilation of the same key across replicas.
  - MetricsRecorder: receives expansion counts, diagnostics and pass timings.
  - Watchable: optional change notification for element map loaders.
*/
package ports
