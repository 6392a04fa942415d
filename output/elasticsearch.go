package output

import (
	"fmt"

	"github.com/archivelab/fcbatch"

	"github.com/olivere/elastic/v7"
)

// ElasticsearchIndexerConfig represents the ElasticsearchIndexer configurable
// fields model.
type ElasticsearchIndexerConfig struct {
	// ServerURL is the ES server URL with protocol and port. E.g. https://my.es.instance:9200.
	ServerURL string `validate:"required,url"`
	// Index is the name of the index the load documents go to.
	Index string `validate:"required"`
}

// NewElasticsearchIndexer returns a new instance of the ElasticsearchIndexer.
func NewElasticsearchIndexer(cfg ElasticsearchIndexerConfig) *ElasticsearchIndexer {
	return &ElasticsearchIndexer{Cfg: cfg}
}

// ElasticsearchIndexer represents a secondary destination that indexes the
// mapped fields of each loaded row in Elasticsearch so the finished load is
// searchable. It never affects the repository load outcome.
type ElasticsearchIndexer struct {
	fcbatch.BaseStorage
	Cfg    ElasticsearchIndexerConfig
	client *elastic.Client
}

// Setup contains the storage preparations like connection etc. As for the
// ElasticsearchIndexer, it setups the internal client and pings the server.
func (o *ElasticsearchIndexer) Setup() error {
	client, err := elastic.NewClient(elastic.SetURL(o.Cfg.ServerURL), elastic.SetSniff(false))
	if err != nil {
		return err
	}
	if _, _, err := client.Ping(o.Cfg.ServerURL).Do(o.Context); err != nil {
		return err
	}
	o.client = client
	return nil
}

// Shutdown stops the internal client.
func (o *ElasticsearchIndexer) Shutdown() {
	if o.client != nil {
		o.client.Stop()
	}
}

// IndexResource stores the mapped fields of one loaded row as a document
// identified by its object URI.
func (o *ElasticsearchIndexer) IndexResource(objectURI string, fields map[string]interface{}) error {
	if _, err := o.client.Index().
		Index(o.Cfg.Index).
		Id(objectURI).
		BodyJson(fields).
		Do(o.Context); err != nil {
		return fmt.Errorf("failed to index document %s: %v", objectURI, err)
	}
	return nil
}
