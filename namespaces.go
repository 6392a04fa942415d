package fcbatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"
)

// Namespaces maps RDF prefixes to their namespace URIs. The bindings come from
// the config file and are used both to expand prefixed predicate names from the
// column mapping and to build the PREFIX block of SPARQL update payloads.
type Namespaces map[string]string

// Expand resolves a prefixed name like "dc:title" to an absolute IRI. An
// unknown prefix or a name without a prefix separator is an error.
func (n Namespaces) Expand(name string) (rdf.IRI, error) {
	prefix, local, found := strings.Cut(name, ":")
	if !found {
		return rdf.IRI{}, fmt.Errorf("invalid prefixed name %q: missing prefix separator", name)
	}
	uri, ok := n[prefix]
	if !ok {
		return rdf.IRI{}, fmt.Errorf("unknown namespace prefix %q in %q", prefix, name)
	}
	return rdf.IRI{Value: uri + local}, nil
}

// Compact converts an absolute IRI back to its prefixed form using the longest
// matching binding. If no binding matches, the IRI is rendered in angle
// brackets so the result is always a valid SPARQL token.
func (n Namespaces) Compact(iri rdf.IRI) string {
	var bestPrefix, bestURI string
	for prefix, uri := range n {
		if strings.HasPrefix(iri.Value, uri) && len(uri) > len(bestURI) {
			bestPrefix, bestURI = prefix, uri
		}
	}
	if bestURI == "" {
		return "<" + iri.Value + ">"
	}
	return bestPrefix + ":" + iri.Value[len(bestURI):]
}

// PrefixHeader returns one SPARQL PREFIX declaration per binding, sorted by
// prefix for deterministic payloads.
func (n Namespaces) PrefixHeader() []string {
	prefixes := make([]string, 0, len(n))
	for prefix := range n {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	lines := make([]string, 0, len(n))
	for _, prefix := range prefixes {
		lines = append(lines, fmt.Sprintf("PREFIX %s: <%s>", prefix, n[prefix]))
	}
	return lines
}
