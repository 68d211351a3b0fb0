package ontology

import (
	"strings"

	"github.com/ppiankov/ontobridge/internal/model"
)

// kindTypes lists the rdf:type objects that make a resource a concept, in output order
var kindTypes = []struct {
	typeIRI string
	kind    model.Kind
}{
	{OWLClass, model.KindClass},
	{OWLDatatypeProperty, model.KindProperty},
}

// Extract returns one Concept per resource typed owl:Class or owl:DatatypeProperty.
// Classes come first, then properties, each in first-assertion order. A resource
// typed as both yields one concept per kind. Blank-node resources are skipped.
// An empty result is valid.
func Extract(g *Graph) []model.Concept {
	if g == nil {
		return nil
	}

	var concepts []model.Concept

	for _, kt := range kindTypes {
		seen := make(map[string]bool)
		for _, subj := range g.SubjectsOf(RDFType, kt.typeIRI) {
			if subj.Kind != TermIRI || seen[subj.Value] {
				continue
			}
			seen[subj.Value] = true

			concepts = append(concepts, model.Concept{
				URI:     subj.Value,
				Label:   labelOf(g, subj.Value),
				Comment: literalOf(g, subj.Value, RDFSComment),
				Kind:    kt.kind,
			})
		}
	}

	return concepts
}

// labelOf falls back to the IRI local name when no rdfs:label literal exists
func labelOf(g *Graph, iri string) string {
	if label := literalOf(g, iri, RDFSLabel); label != "" {
		return label
	}
	return model.LocalName(iri)
}

// literalOf returns the first non-empty literal value of a predicate, or ""
func literalOf(g *Graph, subject, predicate string) string {
	for _, obj := range g.Objects(subject, predicate) {
		if obj.Kind != TermLiteral {
			continue
		}
		if v := strings.TrimSpace(obj.Value); v != "" {
			return v
		}
	}
	return ""
}

// ConceptsByKind splits concepts into classes and properties
func ConceptsByKind(concepts []model.Concept) map[model.Kind][]model.Concept {
	out := make(map[model.Kind][]model.Concept)
	for _, c := range concepts {
		out[c.Kind] = append(out[c.Kind], c)
	}
	return out
}
