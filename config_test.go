package fcbatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testConfigYAML = `
repository:
  endpoint: http://localhost:8080/fcrepo/rest
  user: fedoraAdmin
  password: secret
  transactions: true
namespaces:
  dc: http://purl.org/dc/elements/1.1/
  pcdm: http://pcdm.org/models#
  rdf: http://www.w3.org/1999/02/22-rdf-syntax-ns#
  exterms: http://example.org/terms/
mapping:
  file_column: image_url
  label_column: title
  columns:
    title: dc:title
    identifier: dc:identifier
    inventor:
      predicate: dc:creator
      delimiter: ";"
  file_columns:
    pages: exterms:extent
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	assert.Equal(t, "http://localhost:8080/fcrepo/rest", cfg.Repository.Endpoint)
	assert.Equal(t, "fedoraAdmin", cfg.Repository.User)
	assert.True(t, cfg.Repository.Transactions)
	assert.Equal(t, "image_url", cfg.Mapping.FileColumn)
	assert.Equal(t, "title", cfg.Mapping.Label())
	assert.Equal(t, "dc:title", cfg.Mapping.Columns["title"].Predicate)
	assert.Equal(t, "", cfg.Mapping.Columns["title"].Delimiter)
	assert.Equal(t, "dc:creator", cfg.Mapping.Columns["inventor"].Predicate)
	assert.Equal(t, ";", cfg.Mapping.Columns["inventor"].Delimiter)
	assert.Equal(t, "exterms:extent", cfg.Mapping.FileColumns["pages"].Predicate)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	assert.Equal(t, 60, cfg.Repository.Timeout)
	assert.Equal(t, "fs", cfg.Input.Kind)
	assert.Equal(t, "metadata.csv", cfg.Input.MetadataFile)
	assert.Equal(t, "file", cfg.Tracker.Kind)
	assert.Equal(t, "load.log", cfg.Tracker.Path)
	assert.False(t, cfg.Index.Enabled)
	assert.False(t, cfg.ContinueOnError)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Run("MissingEndpoint", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `
namespaces:
  pcdm: http://pcdm.org/models#
  rdf: http://www.w3.org/1999/02/22-rdf-syntax-ns#
mapping:
  file_column: file
  columns:
    title: rdf:value
`))
		assert.NotNil(t, err)
	})
	t.Run("UnknownMappingPrefix", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `
repository:
  endpoint: http://localhost:8080/fcrepo/rest
namespaces:
  pcdm: http://pcdm.org/models#
  rdf: http://www.w3.org/1999/02/22-rdf-syntax-ns#
mapping:
  file_column: file
  columns:
    title: dc:title
`))
		if assert.NotNil(t, err) {
			assert.Contains(t, err.Error(), `unknown namespace prefix "dc"`)
		}
	})
	t.Run("MissingPCDMBinding", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `
repository:
  endpoint: http://localhost:8080/fcrepo/rest
namespaces:
  rdf: http://www.w3.org/1999/02/22-rdf-syntax-ns#
mapping:
  file_column: file
  columns:
    title: rdf:value
`))
		if assert.NotNil(t, err) {
			assert.Contains(t, err.Error(), `namespace binding for "pcdm" is required`)
		}
	})
	t.Run("S3WithoutBucket", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `
repository:
  endpoint: http://localhost:8080/fcrepo/rest
namespaces:
  pcdm: http://pcdm.org/models#
  rdf: http://www.w3.org/1999/02/22-rdf-syntax-ns#
mapping:
  file_column: file
  columns:
    title: rdf:value
input:
  kind: s3
`))
		if assert.NotNil(t, err) {
			assert.Contains(t, err.Error(), "input bucket is required")
		}
	})
	t.Run("IndexWithoutServerURL", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `
repository:
  endpoint: http://localhost:8080/fcrepo/rest
namespaces:
  pcdm: http://pcdm.org/models#
  rdf: http://www.w3.org/1999/02/22-rdf-syntax-ns#
mapping:
  file_column: file
  columns:
    title: rdf:value
index:
  enabled: true
`))
		if assert.NotNil(t, err) {
			assert.Contains(t, err.Error(), "index server_url is required")
		}
	})
}
