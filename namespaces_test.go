package fcbatch

import (
	"testing"

	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/stretchr/testify/assert"
)

func testNamespaces() Namespaces {
	return Namespaces{
		"dc":      "http://purl.org/dc/elements/1.1/",
		"pcdm":    "http://pcdm.org/models#",
		"rdf":     "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"exterms": "http://example.org/terms/",
	}
}

func TestNamespacesExpand(t *testing.T) {
	ns := testNamespaces()
	t.Run("Known", func(t *testing.T) {
		iri, err := ns.Expand("dc:title")
		assert.Nil(t, err)
		assert.Equal(t, "http://purl.org/dc/elements/1.1/title", iri.Value)
	})
	t.Run("UnknownPrefix", func(t *testing.T) {
		_, err := ns.Expand("foo:bar")
		assert.EqualError(t, err, `unknown namespace prefix "foo" in "foo:bar"`)
	})
	t.Run("NoSeparator", func(t *testing.T) {
		_, err := ns.Expand("title")
		assert.EqualError(t, err, `invalid prefixed name "title": missing prefix separator`)
	})
}

func TestNamespacesCompact(t *testing.T) {
	ns := testNamespaces()
	assert.Equal(t, "dc:title", ns.Compact(rdf.IRI{Value: "http://purl.org/dc/elements/1.1/title"}))
	assert.Equal(t, "pcdm:Object", ns.Compact(rdf.IRI{Value: "http://pcdm.org/models#Object"}))
	assert.Equal(t, "<http://localhost:8080/rest/obj/1>", ns.Compact(rdf.IRI{Value: "http://localhost:8080/rest/obj/1"}))
}

func TestNamespacesPrefixHeader(t *testing.T) {
	ns := testNamespaces()
	assert.Equal(t, []string{
		"PREFIX dc: <http://purl.org/dc/elements/1.1/>",
		"PREFIX exterms: <http://example.org/terms/>",
		"PREFIX pcdm: <http://pcdm.org/models#>",
		"PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>",
	}, ns.PrefixHeader())
}
