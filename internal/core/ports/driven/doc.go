// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the embedding model collaborators and the
// persistent index cache.
package driven
