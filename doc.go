// Package topictree is an AI-assisted explorer for academic research
// keywords. A session starts from one or more seed keywords and asks a
// language model to grow a tree of subtopics for each, relate the keywords
// in a network, and surface literature for any node. Session state is
// immutable: every change produces a new forest that shares untouched
// subtrees with its predecessor.
//
// The packages:
//
//   - tree: the keyword tree data model and the copy-on-path Apply patcher
//   - netgraph: the keyword network, its edge filter, and diagram exporters
//   - collab: the AI collaborator contracts and their strict-JSON decoding
//   - session: the orchestrator that owns session state and the mutation budget
//   - store: session snapshots and their persistence backends
//   - report: Markdown and HTML session reports
//
// The cmd/topictree command wraps it all in an interactive terminal session.
package topictree
