package ontology

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/knakk/rdf"

	"github.com/ppiankov/ontobridge/internal/model"
)

// Record is one resource of a response graph flattened into predicate/value fields
type Record struct {
	ID     string            `json:"id"`
	Types  []string          `json:"types,omitempty"`
	Fields map[string]string `json:"fields"`
}

// Payload converts the record fields into a transformable payload
func (r Record) Payload() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		out[k] = v
	}
	return out
}

// Records flattens every subject that carries at least one non-type property.
// Each field keeps the first value asserted for its predicate; IRI objects keep the full IRI.
// Records come out in first-seen subject order.
func Records(g *Graph) []Record {
	var out []Record
	for _, subj := range g.Subjects() {
		preds := g.Predicates(subj)

		rec := Record{ID: subj, Fields: make(map[string]string)}
		for _, t := range preds[RDFType] {
			if t.Kind == TermIRI {
				rec.Types = append(rec.Types, t.Value)
			}
		}

		for pred, objs := range preds {
			if pred == RDFType || len(objs) == 0 {
				continue
			}
			if objs[0].Kind == TermBlank {
				continue
			}
			rec.Fields[pred] = objs[0].Value
		}

		if len(rec.Fields) > 0 {
			out = append(out, rec)
		}
	}
	return out
}

// HasType reports whether the record is typed with an IRI whose local name is name
func (r Record) HasType(name string) bool {
	for _, t := range r.Types {
		if t == name || model.LocalName(t) == name {
			return true
		}
	}
	return false
}

// RequestGraph builds a request resource typed typeIRI with one property per payload key.
// Keys that are already absolute IRIs are used as-is; bare names are resolved against namespace.
func RequestGraph(payload map[string]any, typeIRI, namespace string) (*Graph, error) {
	g := NewGraph()
	subj := IRI("urn:uuid:" + uuid.NewString())

	if typeIRI != "" {
		g.Add(Triple{Subject: subj, Predicate: RDFType, Object: IRI(typeIRI)})
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		pred := k
		if !isAbsoluteIRI(k) {
			if namespace == "" {
				return nil, fmt.Errorf("field %q has no namespace", k)
			}
			pred = namespace + k
		}
		g.Add(Triple{Subject: subj, Predicate: pred, Object: literalFor(payload[k])})
	}

	return g, nil
}

// literalFor types a payload value; integral numbers become xsd:integer
func literalFor(v any) Term {
	switch x := v.(type) {
	case string:
		return Term{Value: x, Kind: TermLiteral, Datatype: XSDString}
	case bool:
		return Term{Value: strconv.FormatBool(x), Kind: TermLiteral, Datatype: XSDBoolean}
	case int:
		return Term{Value: strconv.Itoa(x), Kind: TermLiteral, Datatype: XSDInteger}
	case int64:
		return Term{Value: strconv.FormatInt(x, 10), Kind: TermLiteral, Datatype: XSDInteger}
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && math.Abs(x) < 1e15 {
			return Term{Value: strconv.FormatInt(int64(x), 10), Kind: TermLiteral, Datatype: XSDInteger}
		}
		return Term{Value: strconv.FormatFloat(x, 'f', -1, 64), Kind: TermLiteral, Datatype: XSDDecimal}
	default:
		return Term{Value: fmt.Sprint(x), Kind: TermLiteral, Datatype: XSDString}
	}
}

// WriteNTriples serializes g in N-Triples
func WriteNTriples(w io.Writer, g *Graph) error {
	enc := rdf.NewTripleEncoder(w, rdf.NTriples)
	for _, t := range g.Triples() {
		tr, err := toRDF(t)
		if err != nil {
			return err
		}
		if err := enc.Encode(tr); err != nil {
			return fmt.Errorf("encode triple: %w", err)
		}
	}
	return enc.Close()
}

func toRDF(t Triple) (rdf.Triple, error) {
	subj, err := subjectToRDF(t.Subject)
	if err != nil {
		return rdf.Triple{}, err
	}
	pred, err := rdf.NewIRI(t.Predicate)
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("predicate %q: %w", t.Predicate, err)
	}

	var obj rdf.Object
	switch t.Object.Kind {
	case TermLiteral:
		if t.Object.Datatype != "" {
			dt, err := rdf.NewIRI(t.Object.Datatype)
			if err != nil {
				return rdf.Triple{}, fmt.Errorf("datatype %q: %w", t.Object.Datatype, err)
			}
			obj = rdf.NewTypedLiteral(t.Object.Value, dt)
		} else {
			lit, err := rdf.NewLiteral(t.Object.Value)
			if err != nil {
				return rdf.Triple{}, err
			}
			obj = lit
		}
	case TermBlank:
		b, err := rdf.NewBlank(strings.TrimPrefix(t.Object.Value, "_:"))
		if err != nil {
			return rdf.Triple{}, fmt.Errorf("blank %q: %w", t.Object.Value, err)
		}
		obj = b
	default:
		iri, err := rdf.NewIRI(t.Object.Value)
		if err != nil {
			return rdf.Triple{}, fmt.Errorf("iri %q: %w", t.Object.Value, err)
		}
		obj = iri
	}

	return rdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}

func subjectToRDF(t Term) (rdf.Subject, error) {
	if t.Kind == TermBlank {
		b, err := rdf.NewBlank(strings.TrimPrefix(t.Value, "_:"))
		if err != nil {
			return nil, fmt.Errorf("blank %q: %w", t.Value, err)
		}
		return b, nil
	}
	iri, err := rdf.NewIRI(t.Value)
	if err != nil {
		return nil, fmt.Errorf("iri %q: %w", t.Value, err)
	}
	return iri, nil
}

func isAbsoluteIRI(s string) bool {
	for i, r := range s {
		switch {
		case r == ':':
			return i > 0
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return false
}
