package model

import "strings"

// Kind classifies an ontology concept or a mapping derived from one
type Kind string

const (
	KindClass    Kind = "class"    // owl:Class
	KindProperty Kind = "property" // owl:DatatypeProperty
	KindUnknown  Kind = "unknown"  // Reported by tools that don't say
)

// ParseKind maps a free-form type string onto a Kind
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "class", "owl:class", "http://www.w3.org/2002/07/owl#class":
		return KindClass
	case "property", "datatypeproperty", "owl:datatypeproperty", "http://www.w3.org/2002/07/owl#datatypeproperty":
		return KindProperty
	default:
		return KindUnknown
	}
}

// Concept is a class or datatype property extracted from an ontology graph.
// Concepts are read-only snapshots taken at extraction time.
type Concept struct {
	URI     string `json:"uri"`               // Absolute IRI, unique within a graph
	Label   string `json:"label"`             // rdfs:label or the IRI local name
	Comment string `json:"comment,omitempty"` // rdfs:comment, may be empty
	Kind    Kind   `json:"type"`
}

// LocalName returns the part of an IRI after the last '#'.
// IRIs without a fragment fall back to the last path segment.
func LocalName(iri string) string {
	if i := strings.LastIndex(iri, "#"); i >= 0 {
		return iri[i+1:]
	}
	if i := strings.LastIndex(iri, "/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

// Namespace returns the IRI prefix that precedes LocalName(iri)
func Namespace(iri string) string {
	return strings.TrimSuffix(iri, LocalName(iri))
}
