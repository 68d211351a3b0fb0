package ontology

import "strings"

// TermKind distinguishes the three RDF term types
type TermKind int

const (
	TermIRI TermKind = iota
	TermBlank
	TermLiteral
)

// Term is a library-independent RDF term
type Term struct {
	Value    string   // IRI, blank node label, or literal lexical form
	Kind     TermKind
	Datatype string // Literal datatype IRI, if any
	Lang     string // Literal language tag, if any
}

// IRI builds an IRI term
func IRI(v string) Term { return Term{Value: v, Kind: TermIRI} }

// Literal builds a plain literal term
func Literal(v string) Term { return Term{Value: v, Kind: TermLiteral} }

// Blank builds a blank node term. Blank values carry the "_:" prefix.
func Blank(id string) Term { return Term{Value: "_:" + strings.TrimPrefix(id, "_:"), Kind: TermBlank} }

// Triple is a single subject-predicate-object statement
type Triple struct {
	Subject   Term
	Predicate string
	Object    Term
}

// Graph is an in-memory triple set with a subject/predicate index.
// Triples keep the order in which they were added.
type Graph struct {
	triples []Triple
	index   map[string]map[string][]Term
	order   []string
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		index: make(map[string]map[string][]Term),
	}
}

// Add appends a triple
func (g *Graph) Add(t Triple) {
	g.triples = append(g.triples, t)

	preds, ok := g.index[t.Subject.Value]
	if !ok {
		preds = make(map[string][]Term)
		g.index[t.Subject.Value] = preds
		g.order = append(g.order, t.Subject.Value)
	}
	preds[t.Predicate] = append(preds[t.Predicate], t.Object)
}

// Len returns the number of triples
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns all triples in insertion order
func (g *Graph) Triples() []Triple {
	return g.triples
}

// SubjectsOf returns subjects with the given predicate and IRI object, deduplicated, in first-seen order
func (g *Graph) SubjectsOf(predicate, object string) []Term {
	seen := make(map[string]bool)
	var out []Term
	for _, t := range g.triples {
		if t.Predicate != predicate || t.Object.Kind != TermIRI || t.Object.Value != object {
			continue
		}
		if seen[t.Subject.Value] {
			continue
		}
		seen[t.Subject.Value] = true
		out = append(out, t.Subject)
	}
	return out
}

// Objects returns all objects for a subject and predicate
func (g *Graph) Objects(subject, predicate string) []Term {
	return g.index[subject][predicate]
}

// Value returns the first object for a subject and predicate
func (g *Graph) Value(subject, predicate string) (Term, bool) {
	objs := g.index[subject][predicate]
	if len(objs) == 0 {
		return Term{}, false
	}
	return objs[0], true
}

// Subjects returns every distinct subject in first-seen order
func (g *Graph) Subjects() []string {
	return g.order
}

// Predicates returns the predicate/object index of one subject
func (g *Graph) Predicates(subject string) map[string][]Term {
	return g.index[subject]
}
