package ontology

// Standard vocabulary IRIs used during extraction and request encoding.
// References:
// - RDF 1.1 Concepts: https://www.w3.org/TR/rdf11-concepts/
// - RDF Schema: https://www.w3.org/TR/rdf-schema/
// - OWL 2: https://www.w3.org/TR/owl2-overview/
const (
	RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	RDFSLabel   = "http://www.w3.org/2000/01/rdf-schema#label"
	RDFSComment = "http://www.w3.org/2000/01/rdf-schema#comment"

	OWLClass            = "http://www.w3.org/2002/07/owl#Class"
	OWLDatatypeProperty = "http://www.w3.org/2002/07/owl#DatatypeProperty"

	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
)
