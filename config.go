package fcbatch

import (
	"fmt"
	"os"

	"github.com/divideandconquer/go-merge/merge"
	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

// Config is the full settings model of a batch load. It is loaded once from a
// YAML file and stays immutable for the run.
type Config struct {
	Repository RepositoryConfig `yaml:"repository" validate:"required"`
	Namespaces Namespaces       `yaml:"namespaces" validate:"required"`
	Mapping    MappingConfig    `yaml:"mapping" validate:"required"`
	Input      InputConfig      `yaml:"input"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Index      IndexConfig      `yaml:"index"`
	// ContinueOnError makes the run track row failures as issues and keep
	// going instead of aborting on the first one.
	ContinueOnError bool `yaml:"continue_on_error"`
}

// RepositoryConfig holds the connection parameters of the target repository.
type RepositoryConfig struct {
	// Endpoint is the repository REST base URL, e.g. http://localhost:8080/fcrepo/rest.
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// Transactions scopes each row load into its own repository transaction.
	Transactions bool `yaml:"transactions"`
	// Timeout is the HTTP client timeout in seconds.
	Timeout int `yaml:"timeout" validate:"gt=0"`
}

// MappingConfig describes how CSV columns become RDF properties.
type MappingConfig struct {
	// FileColumn names the column whose basename identifies the sibling
	// binary file of the row.
	FileColumn string `yaml:"file_column" validate:"required"`
	// LabelColumn names the column used as a human readable label in logs
	// and the load protocol. Defaults to the file column.
	LabelColumn string `yaml:"label_column"`
	// Columns maps column names to predicates attached to the object container.
	Columns map[string]ColumnMapping `yaml:"columns" validate:"required,min=1"`
	// FileColumns maps column names to predicates attached to the binary resource.
	FileColumns map[string]ColumnMapping `yaml:"file_columns"`
}

// ColumnMapping binds one CSV column to one predicate. In YAML it can be given
// either as a plain string ("dc:title") or as a mapping with a delimiter for
// multi-valued columns.
type ColumnMapping struct {
	Predicate string `yaml:"predicate" validate:"required"`
	// Delimiter splits the raw column value into multiple literals, one
	// triple per value. Empty means the column is single-valued.
	Delimiter string `yaml:"delimiter"`
}

// UnmarshalYAML accepts the scalar shorthand form next to the full mapping form.
func (m *ColumnMapping) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		m.Predicate = value.Value
		return nil
	}
	type plain ColumnMapping
	return value.Decode((*plain)(m))
}

// InputConfig selects and configures the input backend.
type InputConfig struct {
	// Kind is the input backend: "fs" for a local directory, "s3" for a bucket.
	Kind string `yaml:"kind" validate:"required,oneof=fs s3"`
	// MetadataFile is the name of the metadata sheet inside the input.
	MetadataFile string `yaml:"metadata_file" validate:"required"`
	// Bucket and Prefix configure the s3 backend.
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// TrackerConfig selects and configures the load protocol tracker.
type TrackerConfig struct {
	// Kind is the tracker backend: "file" for a TSV protocol next to the
	// input, "mysql" for a database protocol.
	Kind string `yaml:"kind" validate:"required,oneof=file mysql"`
	// Path is the protocol file name used by the file tracker.
	Path  string      `yaml:"path"`
	MySQL MySQLConfig `yaml:"mysql"`
}

// MySQLConfig holds the mysql tracker connection parameters.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// IndexConfig configures the optional search index fed after each loaded row.
type IndexConfig struct {
	Enabled bool `yaml:"enabled"`
	// ServerURL is the Elasticsearch server URL with protocol and port.
	ServerURL string `yaml:"server_url" validate:"omitempty,url"`
	// Index is the name of the index the documents go to.
	Index string `yaml:"index"`
}

// defaultConfigValues returns the settings assumed when the config file leaves
// them out. The loaded file is merged over these.
func defaultConfigValues() map[string]interface{} {
	return map[string]interface{}{
		"repository": map[string]interface{}{
			"timeout": 60,
		},
		"input": map[string]interface{}{
			"kind":          "fs",
			"metadata_file": "metadata.csv",
		},
		"tracker": map[string]interface{}{
			"kind": "file",
			"path": "load.log",
		},
		"index": map[string]interface{}{
			"index": "fcbatch",
		},
	}
}

// LoadConfig reads, merges with defaults and validates the YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}
	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %v", path, err)
	}
	merged := merge.Merge(defaultConfigValues(), raw).(map[string]interface{})
	mergedData, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to remarshal merged config: %v", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(mergedData, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %v", path, err)
	}
	return cfg, nil
}

// Validate checks the config structure and the cross references between the
// column mapping and the namespace bindings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	for _, prefix := range []string{"rdf", "pcdm"} {
		if _, ok := c.Namespaces[prefix]; !ok {
			return fmt.Errorf("namespace binding for %q is required", prefix)
		}
	}
	for column, mapping := range c.Mapping.Columns {
		if _, err := c.Namespaces.Expand(mapping.Predicate); err != nil {
			return fmt.Errorf("column %q: %v", column, err)
		}
	}
	for column, mapping := range c.Mapping.FileColumns {
		if _, err := c.Namespaces.Expand(mapping.Predicate); err != nil {
			return fmt.Errorf("file column %q: %v", column, err)
		}
	}
	if c.Input.Kind == "s3" && c.Input.Bucket == "" {
		return fmt.Errorf("input bucket is required for the s3 input")
	}
	if c.Tracker.Kind == "mysql" {
		m := c.Tracker.MySQL
		if m.Host == "" || m.Port == "" || m.Database == "" || m.User == "" {
			return fmt.Errorf("mysql tracker requires host, port, database and user")
		}
	}
	if c.Index.Enabled && c.Index.ServerURL == "" {
		return fmt.Errorf("index server_url is required when the index is enabled")
	}
	return nil
}

// Label returns the label column, falling back to the file column.
func (m MappingConfig) Label() string {
	if m.LabelColumn != "" {
		return m.LabelColumn
	}
	return m.FileColumn
}
