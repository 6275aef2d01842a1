package proxy

import (
	"net/http"
	"slices"
	"strings"
)

// Rule forwards one resource collection: /api/<Segment>[/...] to
// <upstream>/<Segment>[/...].
type Rule struct {
	// Segment is the collection name, e.g. "projects".
	Segment string

	// Methods is the allow-list. Anything else gets 405.
	Methods []string

	// Subpaths also routes /<Segment>/* to the upstream.
	Subpaths bool
}

var (
	readWrite = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	readOnly  = []string{http.MethodGet}
	postOnly  = []string{http.MethodPost}
)

// DefaultRules are the collections the dashboard talks to.
func DefaultRules() []Rule {
	return []Rule{
		{Segment: "projects", Methods: readWrite},
		{Segment: "tasks", Methods: readWrite},
		{Segment: "members", Methods: readWrite},
		{Segment: "organizations", Methods: readWrite, Subpaths: true},
		{Segment: "billing", Methods: readOnly, Subpaths: true},
		{Segment: "analytics", Methods: readOnly, Subpaths: true},
		{Segment: "auth", Methods: postOnly, Subpaths: true},
	}
}

// Allows reports whether method is on the rule's allow-list.
func (r Rule) Allows(method string) bool {
	return slices.Contains(r.Methods, strings.ToUpper(method))
}

func (r Rule) allowHeader() string {
	return strings.Join(r.Methods, ", ")
}
