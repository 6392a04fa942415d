package fcbatch

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"
)

// Resource is the transient in-memory form of one CSV row: the RDF properties
// of the object container and of its member binary, plus the name of the
// sibling binary file. It only lives between the row read and the repository
// calls.
type Resource struct {
	// Filename is the basename of the row's binary file.
	Filename string
	// Label is a human readable identifier used in logs and the load protocol.
	Label string
	// ObjectTriples are the properties of the object container, with expanded
	// predicate IRIs and a relative subject.
	ObjectTriples []rdf.Triple
	// FileTriples are the properties of the binary resource.
	FileTriples []rdf.Triple
	// Checksum is the SHA-1 hex digest of the binary, set once it is read.
	Checksum string
}

// NewResource maps a row through the column mapping and namespace bindings
// into an object/binary property pair. Multi-valued columns produce one triple
// per value, empty values produce none.
func NewResource(row Row, mapping MappingConfig, ns Namespaces) (*Resource, error) {
	filename := path.Base(row.Get(mapping.FileColumn))
	if filename == "." || filename == "/" || strings.TrimSpace(row.Get(mapping.FileColumn)) == "" {
		return nil, fmt.Errorf("row has no usable value in file column %q", mapping.FileColumn)
	}
	label := row.Get(mapping.Label())
	if label == "" {
		label = filename
	}
	objectTriples, err := mapColumns(row, mapping.Columns, ns)
	if err != nil {
		return nil, err
	}
	fileTriples, err := mapColumns(row, mapping.FileColumns, ns)
	if err != nil {
		return nil, err
	}
	rdfType, err := ns.Expand("rdf:type")
	if err != nil {
		return nil, err
	}
	pcdmObject, err := ns.Expand("pcdm:Object")
	if err != nil {
		return nil, err
	}
	pcdmFile, err := ns.Expand("pcdm:File")
	if err != nil {
		return nil, err
	}
	objectTriples = append(objectTriples, triple(rdfType, pcdmObject))
	fileTriples = append(fileTriples, triple(rdfType, pcdmFile))
	return &Resource{
		Filename:      filename,
		Label:         label,
		ObjectTriples: objectTriples,
		FileTriples:   fileTriples,
	}, nil
}

// ObjectPayload renders the SPARQL update for the object container, linking it
// to the created binary via pcdm:hasFile.
func (r *Resource) ObjectPayload(ns Namespaces, fileURI string) (string, error) {
	hasFile, err := ns.Expand("pcdm:hasFile")
	if err != nil {
		return "", err
	}
	triples := append([]rdf.Triple{}, r.ObjectTriples...)
	if fileURI != "" {
		triples = append(triples, triple(hasFile, rdf.IRI{Value: fileURI}))
	}
	return sparqlInsert(ns, triples), nil
}

// FilePayload renders the SPARQL update for the binary resource, linking it
// back to its object via pcdm:fileOf.
func (r *Resource) FilePayload(ns Namespaces, objectURI string) (string, error) {
	fileOf, err := ns.Expand("pcdm:fileOf")
	if err != nil {
		return "", err
	}
	triples := append([]rdf.Triple{}, r.FileTriples...)
	if objectURI != "" {
		triples = append(triples, triple(fileOf, rdf.IRI{Value: objectURI}))
	}
	return sparqlInsert(ns, triples), nil
}

// mapColumns builds literal triples for the mapped columns in deterministic
// column order.
func mapColumns(row Row, columns map[string]ColumnMapping, ns Namespaces) ([]rdf.Triple, error) {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	var triples []rdf.Triple
	for _, name := range names {
		mapping := columns[name]
		predicate, err := ns.Expand(mapping.Predicate)
		if err != nil {
			return nil, fmt.Errorf("column %q: %v", name, err)
		}
		for _, value := range row.Values(name, mapping.Delimiter) {
			triples = append(triples, triple(predicate, rdf.Literal{Lexical: value}))
		}
	}
	return triples, nil
}

// triple builds a statement about the resource itself. The subject stays
// relative so the repository resolves it against the PATCHed resource URI.
func triple(predicate rdf.IRI, object rdf.Term) rdf.Triple {
	return rdf.Triple{S: rdf.IRI{}, P: predicate, O: object}
}

// sparqlInsert renders a PREFIX block from the bindings followed by an
// INSERT DATA body with one line per triple.
func sparqlInsert(ns Namespaces, triples []rdf.Triple) string {
	lines := ns.PrefixHeader()
	lines = append(lines, "INSERT DATA {")
	for _, t := range triples {
		lines = append(lines, fmt.Sprintf("<> %s %s .", ns.Compact(t.P), renderTerm(ns, t.O)))
	}
	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}

// renderTerm renders an object term as a SPARQL token. Literals keep their
// escaped lexical form, IRIs are compacted where a binding covers them.
func renderTerm(ns Namespaces, term rdf.Term) string {
	if iri, ok := term.(rdf.IRI); ok {
		return ns.Compact(iri)
	}
	return term.String()
}
