package fcbatch

import (
	"io"
)

// Output represents the destination content repository. The Output interface
// is used to create the container and binary resources of a row pair and to
// attach their RDF properties.
type Output interface {
	Storage
	// Ping verifies the connection and the configured credentials.
	Ping() error
	// CreateContainer creates a new container resource under parent and
	// returns its URI. An empty parent means the repository base. A non-empty
	// slug suggests the last path segment of the minted URI.
	CreateContainer(parent, slug string) (string, error)
	// CreateBinary uploads data as a new binary resource under parent and
	// returns its URI. The checksum is the SHA-1 hex digest of the data and
	// is sent along for server-side fixity verification.
	CreateBinary(parent, filename, checksum string, data io.Reader, size int64) (string, error)
	// UpdateProperties applies a SPARQL update payload to the resource at uri.
	UpdateProperties(uri, payload string) error
}

// Transactional is implemented by outputs that can scope a row load into an
// atomic repository transaction.
type Transactional interface {
	// Begin opens a transaction and returns its base URI to create resources under.
	Begin() (string, error)
	// Commit makes all resources created under the transaction permanent.
	Commit(tx string) error
	// Rollback discards all resources created under the transaction.
	Rollback(tx string) error
}

// Indexer is a secondary destination fed after each loaded row so the load
// becomes searchable. Index failures never undo repository state.
type Indexer interface {
	Storage
	// IndexResource stores the mapped fields of one loaded row under its
	// object URI.
	IndexResource(objectURI string, fields map[string]interface{}) error
}
