// Package driving provides interfaces exposed to external actors
// (primary/inbound ports): index construction and passage retrieval.
// The extraction and answer-generation collaborators program against
// these, not against the concrete services.
package driving
