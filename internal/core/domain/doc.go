// Package domain contains the core types of the retrieval engine:
// documents and sections as handed over by the extraction collaborator,
// chunks and their embedding vectors, the built index, and the
// configuration value types (chunking budgets, search cutoffs).
//
// Domain types carry no I/O. Everything that talks to the outside world
// lives behind the ports in internal/core/ports.
package domain
