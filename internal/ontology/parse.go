package ontology

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/knakk/rdf"
	"golang.org/x/net/html/charset"

	"github.com/ppiankov/ontobridge/internal/model"
)

// Format is an RDF serialization understood by Parse
type Format int

const (
	FormatUnknown Format = iota
	FormatRDFXML
	FormatTurtle
	FormatNTriples
)

func (f Format) String() string {
	switch f {
	case FormatRDFXML:
		return "rdfxml"
	case FormatTurtle:
		return "turtle"
	case FormatNTriples:
		return "ntriples"
	default:
		return "unknown"
	}
}

// ParseFormat maps a name or file extension onto a Format
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "rdfxml", "rdf/xml", "xml", "rdf", "owl":
		return FormatRDFXML
	case "turtle", "ttl":
		return FormatTurtle
	case "ntriples", "n-triples", "nt":
		return FormatNTriples
	default:
		return FormatUnknown
	}
}

// FormatFromContentType inspects a Content-Type header value
func FormatFromContentType(contentType string) Format {
	ct := strings.ToLower(contentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)

	switch {
	case ct == "application/rdf+xml", ct == "application/xml", ct == "text/xml", ct == "application/owl+xml":
		return FormatRDFXML
	case ct == "text/turtle", ct == "application/x-turtle":
		return FormatTurtle
	case ct == "application/n-triples":
		return FormatNTriples
	default:
		return FormatUnknown
	}
}

// DetectFormat picks a format from the content type, falling back to sniffing the document head
func DetectFormat(data []byte, contentType string) Format {
	if f := FormatFromContentType(contentType); f != FormatUnknown {
		return f
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimLeft(head, "\xef\xbb\xbf \t\r\n")

	switch {
	case bytes.HasPrefix(head, []byte("<?xml")), bytes.Contains(head, []byte("<rdf:RDF")):
		return FormatRDFXML
	case looksLikeNTriples(head):
		return FormatNTriples
	default:
		return FormatTurtle
	}
}

// looksLikeNTriples reports whether the first statement is a full IRI triple with no prefix directives
func looksLikeNTriples(head []byte) bool {
	if bytes.Contains(head, []byte("@prefix")) || bytes.Contains(head, []byte("PREFIX")) {
		return false
	}
	line := head
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimSpace(line)
	return (bytes.HasPrefix(line, []byte("<")) || bytes.HasPrefix(line, []byte("_:"))) &&
		bytes.HasSuffix(line, []byte("."))
}

// ParseBytes parses a document whose format is detected from contentType or its contents.
// Non-UTF-8 documents are transcoded using the charset named in contentType.
func ParseBytes(data []byte, contentType string) (*Graph, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", model.ErrMalformedOntology)
	}

	var r io.Reader = bytes.NewReader(data)
	if contentType != "" {
		cr, err := charset.NewReader(r, contentType)
		if err == nil {
			r = cr
		}
	}

	return Parse(r, DetectFormat(data, contentType))
}

// Parse decodes all triples from r. Every decoding failure wraps model.ErrMalformedOntology.
func Parse(r io.Reader, format Format) (*Graph, error) {
	var rf rdf.Format
	switch format {
	case FormatRDFXML:
		rf = rdf.RDFXML
	case FormatTurtle:
		rf = rdf.Turtle
	case FormatNTriples:
		rf = rdf.NTriples
	default:
		return nil, fmt.Errorf("%w: unsupported format %s", model.ErrMalformedOntology, format)
	}

	if format == FormatRDFXML {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", model.ErrMalformedOntology, format, err)
		}
		r = bytes.NewReader(expandEntities(data))
	}

	g := NewGraph()
	dec := rdf.NewTripleDecoder(r, rf)
	for {
		tr, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", model.ErrMalformedOntology, format, err)
		}
		g.Add(fromRDF(tr))
	}

	return g, nil
}

func fromRDF(tr rdf.Triple) Triple {
	return Triple{
		Subject:   termFromRDF(tr.Subj),
		Predicate: tr.Pred.String(),
		Object:    termFromRDF(tr.Obj),
	}
}

func termFromRDF(t rdf.Term) Term {
	switch v := t.(type) {
	case rdf.IRI:
		return IRI(v.String())
	case rdf.Blank:
		return Blank(v.String())
	case rdf.Literal:
		return Term{
			Value:    v.String(),
			Kind:     TermLiteral,
			Datatype: v.DataType.String(),
			Lang:     v.Lang(),
		}
	default:
		return IRI(t.String())
	}
}

var (
	doctypePattern    = regexp.MustCompile(`(?s)<!DOCTYPE[^\[>]*(?:\[(.*?)\])?\s*>`)
	entityDeclPattern = regexp.MustCompile(`<!ENTITY\s+([A-Za-z_][\w.-]*)\s+("[^"]*"|'[^']*')\s*>`)
	entityRefPattern  = regexp.MustCompile(`&([A-Za-z_][\w.-]*);`)
)

// expandEntities inlines the internal <!ENTITY> declarations of an RDF/XML
// document (&owl;, &xsd; as written by Protégé) and drops its DOCTYPE.
// The XML predefined entities and undeclared references are left alone.
func expandEntities(data []byte) []byte {
	loc := doctypePattern.FindSubmatchIndex(data)
	if loc == nil {
		return data
	}

	entities := make(map[string][]byte)
	if loc[2] >= 0 {
		for _, m := range entityDeclPattern.FindAllSubmatch(data[loc[2]:loc[3]], -1) {
			value := m[2][1 : len(m[2])-1]
			// values may refer to entities declared before them
			entities[string(m[1])] = expand(value, entities)
		}
	}

	out := make([]byte, 0, len(data))
	out = append(out, data[:loc[0]]...)
	out = append(out, data[loc[1]:]...)
	return expand(out, entities)
}

func expand(data []byte, entities map[string][]byte) []byte {
	if len(entities) == 0 {
		return data
	}
	return entityRefPattern.ReplaceAllFunc(data, func(ref []byte) []byte {
		if v, ok := entities[string(ref[1:len(ref)-1])]; ok {
			return v
		}
		return ref
	})
}
