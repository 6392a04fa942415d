package output

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/archivelab/fcbatch"

	"go.uber.org/zap"
)

// FedoraOutputConfig represents the FedoraOutput configurable fields model.
type FedoraOutputConfig struct {
	// Endpoint is the repository REST base URL, e.g. http://localhost:8080/fcrepo/rest.
	Endpoint string `validate:"required,url"`
	User     string
	Password string
	// Timeout is the HTTP client timeout in seconds.
	Timeout int `validate:"gt=0"`
}

// NewFedoraOutput returns a new instance of the FedoraOutput.
func NewFedoraOutput(cfg FedoraOutputConfig) *FedoraOutput {
	return &FedoraOutput{Cfg: cfg}
}

// FedoraOutput represents an output that creates container and binary
// resources in a Fedora repository over its REST API. All calls are blocking,
// one at a time, with no retries.
type FedoraOutput struct {
	fcbatch.BaseStorage
	Cfg    FedoraOutputConfig
	client *http.Client
}

// Setup contains the storage preparations. As for the FedoraOutput, it builds
// the HTTP client and verifies the endpoint with the configured credentials.
func (o *FedoraOutput) Setup() error {
	o.client = &http.Client{Timeout: time.Duration(o.Cfg.Timeout) * time.Second}
	if err := o.Ping(); err != nil {
		return fmt.Errorf("repository ping error: %v", err)
	}
	return nil
}

// Ping verifies the connection and the configured credentials with a GET on
// the repository base.
func (o *FedoraOutput) Ping() error {
	resp, err := o.do(http.MethodGet, o.Cfg.Endpoint, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, o.Cfg.Endpoint)
	}
	o.Logger.Info("repository connection verified", zap.String("endpoint", o.Cfg.Endpoint))
	return nil
}

// CreateContainer creates a new container resource under parent and returns
// its URI taken from the Location header. An empty parent means the
// repository base.
func (o *FedoraOutput) CreateContainer(parent, slug string) (string, error) {
	uri := o.parentURI(parent)
	headers := http.Header{}
	if slug != "" {
		headers.Set("Slug", slug)
	}
	resp, err := o.do(http.MethodPost, uri, nil, headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", responseError("create container", uri, resp)
	}
	created := resp.Header.Get("Location")
	if created == "" {
		return "", fmt.Errorf("create container response from %s carries no Location header", uri)
	}
	o.Logger.Info("container created", zap.String("uri", created))
	return created, nil
}

// CreateBinary uploads data as a new binary resource under parent. The SHA-1
// checksum travels in the Digest header so the repository verifies fixity on
// receipt, and the filename in the Content-Disposition header.
func (o *FedoraOutput) CreateBinary(parent, filename, checksum string, data io.Reader, size int64) (string, error) {
	uri := o.parentURI(parent)
	headers := http.Header{}
	headers.Set("Content-Type", "application/octet-stream")
	headers.Set("Digest", fmt.Sprintf("sha1=%s", checksum))
	headers.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	req, err := http.NewRequest(http.MethodPost, uri, data)
	if err != nil {
		return "", fmt.Errorf("failed to build a request for %s: %v", uri, err)
	}
	req.Header = headers
	if size > 0 {
		req.ContentLength = size
	}
	o.auth(req)
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %v", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", responseError("create binary", uri, resp)
	}
	created := resp.Header.Get("Location")
	if created == "" {
		return "", fmt.Errorf("create binary response from %s carries no Location header", uri)
	}
	o.Logger.Info("binary created",
		zap.String("uri", created),
		zap.String("filename", filename),
		zap.String("sha1", checksum),
	)
	return created, nil
}

// UpdateProperties applies a SPARQL update payload to the resource at uri.
func (o *FedoraOutput) UpdateProperties(uri, payload string) error {
	headers := http.Header{}
	headers.Set("Content-Type", "application/sparql-update")
	resp, err := o.do(http.MethodPatch, uri, strings.NewReader(payload), headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return responseError("update properties", uri, resp)
	}
	o.Logger.Info("properties updated", zap.String("uri", uri))
	return nil
}

// Begin opens a repository transaction and returns its base URI.
func (o *FedoraOutput) Begin() (string, error) {
	uri := o.Cfg.Endpoint + "/fcr:tx"
	resp, err := o.do(http.MethodPost, uri, nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", responseError("begin transaction", uri, resp)
	}
	tx := resp.Header.Get("Location")
	if tx == "" {
		return "", fmt.Errorf("begin transaction response from %s carries no Location header", uri)
	}
	o.Logger.Info("transaction opened", zap.String("tx", tx))
	return tx, nil
}

// Commit makes all resources created under the transaction permanent.
func (o *FedoraOutput) Commit(tx string) error {
	return o.finishTransaction(tx, "fcr:tx/fcr:commit", "commit")
}

// Rollback discards all resources created under the transaction.
func (o *FedoraOutput) Rollback(tx string) error {
	return o.finishTransaction(tx, "fcr:tx/fcr:rollback", "rollback")
}

// finishTransaction posts the commit or rollback action below the transaction URI.
func (o *FedoraOutput) finishTransaction(tx, action, name string) error {
	uri := strings.TrimSuffix(tx, "/") + "/" + action
	resp, err := o.do(http.MethodPost, uri, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return responseError(name+" transaction", uri, resp)
	}
	o.Logger.Info("transaction "+name, zap.String("tx", tx))
	return nil
}

// do performs a request with the configured credentials.
func (o *FedoraOutput) do(method, uri string, body io.Reader, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequest(method, uri, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build a request for %s: %v", uri, err)
	}
	if headers != nil {
		req.Header = headers
	}
	o.auth(req)
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %v", uri, err)
	}
	return resp, nil
}

// auth sets basic auth when credentials are configured.
func (o *FedoraOutput) auth(req *http.Request) {
	if o.Cfg.User != "" {
		req.SetBasicAuth(o.Cfg.User, o.Cfg.Password)
	}
}

// parentURI resolves an empty parent to the repository base.
func (o *FedoraOutput) parentURI(parent string) string {
	if parent == "" {
		return o.Cfg.Endpoint
	}
	return parent
}

// responseError builds an error from a non-expected repository response,
// including a snippet of the response body.
func responseError(action, uri string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	snippet := strings.TrimSpace(string(body))
	if snippet != "" {
		return fmt.Errorf("%s at %s failed: %s: %s", action, uri, resp.Status, snippet)
	}
	return fmt.Errorf("%s at %s failed: %s", action, uri, resp.Status)
}
