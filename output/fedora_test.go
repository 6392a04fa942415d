package output

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/archivelab/fcbatch"
)

type fedoraCall struct {
	method  string
	path    string
	headers http.Header
	body    string
}

// fedoraServer fakes the repository REST endpoints and records all calls.
func fedoraServer(t *testing.T, calls *[]fedoraCall) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := ioutil.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read the request body: %v", err)
		}
		*calls = append(*calls, fedoraCall{
			method:  r.Method,
			path:    r.URL.Path,
			headers: r.Header.Clone(),
			body:    string(body),
		})
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/fcr:tx/fcr:commit"):
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/fcr:tx/fcr:rollback"):
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/fcr:tx"):
			w.Header().Set("Location", "http://"+r.Host+"/rest/tx:83e34464")
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPost && r.Header.Get("Content-Type") == "application/octet-stream":
			w.Header().Set("Location", "http://"+r.Host+r.URL.Path+"/pp00042.tiff")
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPost:
			w.Header().Set("Location", "http://"+r.Host+r.URL.Path+"/obj1")
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPatch:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
}

func setupFedoraOutput(t *testing.T, calls *[]fedoraCall) (*FedoraOutput, *httptest.Server) {
	server := fedoraServer(t, calls)
	t.Cleanup(server.Close)
	output := NewFedoraOutput(FedoraOutputConfig{
		Endpoint: server.URL + "/rest",
		User:     "fedoraAdmin",
		Password: "secret",
		Timeout:  5,
	})
	if err := output.Prepare(context.Background(), "test_run", zap.NewNop()); err != nil {
		t.Fatalf("failed to prepare the output: %v", err)
	}
	if err := output.Setup(); err != nil {
		t.Fatalf("failed to set up the output: %v", err)
	}
	return output, server
}

func TestFedoraOutputSetupPings(t *testing.T) {
	var calls []fedoraCall
	_, _ = setupFedoraOutput(t, &calls)
	if assert.Len(t, calls, 1) {
		assert.Equal(t, http.MethodGet, calls[0].method)
		assert.Equal(t, "/rest", calls[0].path)
		user, password, ok := parseBasicAuth(calls[0].headers.Get("Authorization"))
		assert.True(t, ok, "ping must carry the configured credentials")
		assert.Equal(t, "fedoraAdmin", user)
		assert.Equal(t, "secret", password)
	}
}

func parseBasicAuth(header string) (string, string, bool) {
	req := &http.Request{Header: http.Header{"Authorization": []string{header}}}
	return req.BasicAuth()
}

func TestFedoraOutputCreateContainer(t *testing.T) {
	var calls []fedoraCall
	output, server := setupFedoraOutput(t, &calls)
	t.Run("AtBase", func(t *testing.T) {
		uri, err := output.CreateContainer("", "")
		assert.Nil(t, err)
		assert.Equal(t, server.URL+"/rest/obj1", uri)
		call := calls[len(calls)-1]
		assert.Equal(t, http.MethodPost, call.method)
		assert.Equal(t, "/rest", call.path)
		assert.Empty(t, call.headers.Get("Slug"))
	})
	t.Run("UnderParentWithSlug", func(t *testing.T) {
		uri, err := output.CreateContainer(server.URL+"/rest/collection", "pp00042")
		assert.Nil(t, err)
		assert.Equal(t, server.URL+"/rest/collection/obj1", uri)
		call := calls[len(calls)-1]
		assert.Equal(t, "/rest/collection", call.path)
		assert.Equal(t, "pp00042", call.headers.Get("Slug"))
	})
}

func TestFedoraOutputCreateBinary(t *testing.T) {
	var calls []fedoraCall
	output, server := setupFedoraOutput(t, &calls)
	data := strings.NewReader("tiff-bytes-1")
	uri, err := output.CreateBinary(
		server.URL+"/rest/obj1",
		"pp00042.tiff",
		"7ca2c19a7edb552ab89e36e8d6b3b938dfe19957",
		data,
		int64(len("tiff-bytes-1")),
	)
	assert.Nil(t, err)
	assert.Equal(t, server.URL+"/rest/obj1/pp00042.tiff", uri)
	call := calls[len(calls)-1]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/rest/obj1", call.path)
	assert.Equal(t, "application/octet-stream", call.headers.Get("Content-Type"))
	assert.Equal(t, "sha1=7ca2c19a7edb552ab89e36e8d6b3b938dfe19957", call.headers.Get("Digest"))
	assert.Equal(t, `attachment; filename="pp00042.tiff"`, call.headers.Get("Content-Disposition"))
	assert.Equal(t, "tiff-bytes-1", call.body)
}

func TestFedoraOutputUpdateProperties(t *testing.T) {
	var calls []fedoraCall
	output, server := setupFedoraOutput(t, &calls)
	payload := "PREFIX dc: <http://purl.org/dc/elements/1.1/>\nINSERT DATA {\n<> dc:title \"Climbing rose\" .\n}"
	err := output.UpdateProperties(server.URL+"/rest/obj1", payload)
	assert.Nil(t, err)
	call := calls[len(calls)-1]
	assert.Equal(t, http.MethodPatch, call.method)
	assert.Equal(t, "/rest/obj1", call.path)
	assert.Equal(t, "application/sparql-update", call.headers.Get("Content-Type"))
	assert.Equal(t, payload, call.body)
}

func TestFedoraOutputTransactions(t *testing.T) {
	var calls []fedoraCall
	output, server := setupFedoraOutput(t, &calls)
	tx, err := output.Begin()
	assert.Nil(t, err)
	assert.Equal(t, server.URL+"/rest/tx:83e34464", tx)
	assert.Equal(t, "/rest/fcr:tx", calls[len(calls)-1].path)

	assert.Nil(t, output.Commit(tx))
	assert.Equal(t, "/rest/tx:83e34464/fcr:tx/fcr:commit", calls[len(calls)-1].path)

	assert.Nil(t, output.Rollback(tx))
	assert.Equal(t, "/rest/tx:83e34464/fcr:tx/fcr:rollback", calls[len(calls)-1].path)
}

func TestFedoraOutputErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("permission denied"))
	}))
	t.Cleanup(server.Close)
	output := NewFedoraOutput(FedoraOutputConfig{Endpoint: server.URL + "/rest", Timeout: 5})
	if err := output.Prepare(context.Background(), "test_run", zap.NewNop()); err != nil {
		t.Fatalf("failed to prepare the output: %v", err)
	}
	if err := output.Setup(); err != nil {
		t.Fatalf("failed to set up the output: %v", err)
	}
	t.Run("CreateContainer", func(t *testing.T) {
		_, err := output.CreateContainer("", "")
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), "create container at "+server.URL+"/rest failed")
			assert.Contains(t, err.Error(), "permission denied")
		}
	})
	t.Run("UpdateProperties", func(t *testing.T) {
		err := output.UpdateProperties(server.URL+"/rest/obj1", "INSERT DATA {}")
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), "update properties at "+server.URL+"/rest/obj1 failed")
		}
	})
}

func TestFedoraOutputMissingLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)
	output := NewFedoraOutput(FedoraOutputConfig{Endpoint: server.URL + "/rest", Timeout: 5})
	if err := output.Prepare(context.Background(), "test_run", zap.NewNop()); err != nil {
		t.Fatalf("failed to prepare the output: %v", err)
	}
	if err := output.Setup(); err != nil {
		t.Fatalf("failed to set up the output: %v", err)
	}
	_, err := output.CreateContainer("", "")
	assert.EqualError(t, err, "create container response from "+server.URL+"/rest carries no Location header")
}

var _ fcbatch.Output = (*FedoraOutput)(nil)
var _ fcbatch.Transactional = (*FedoraOutput)(nil)
