package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/export"
)

type fakeCompiler struct {
	doc *export.Document
	err error
}

func (f *fakeCompiler) CompileSource(ctx context.Context, source []byte) (*export.Document, error) {
	return f.doc, f.err
}

func (f *fakeCompiler) Classes() []domain.Traits {
	return []domain.Traits{{Name: "Queue", PortCount: "1/1", Processing: "h/l"}}
}

func (f *fakeCompiler) Class(name string) (domain.Traits, bool) {
	if name == "Queue" {
		return f.Classes()[0], true
	}
	return domain.Traits{}, false
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := serve(t, NewHandler(&fakeCompiler{}), "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestInfo(t *testing.T) {
	rr := serve(t, NewHandler(&fakeCompiler{}, WithVersion("1.2.3")), "GET", "/info", "")
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "weft-http", resp["app"])
	assert.Equal(t, "1.2.3", resp["version"])
	assert.Equal(t, 1.0, resp["classes"])
}

func TestCompile(t *testing.T) {
	doc := &export.Document{Name: "router", Elements: []export.Element{{Name: "q", Class: "Queue"}}, Connections: []export.Connection{}}
	h := NewHandler(&fakeCompiler{doc: doc})

	rr := serve(t, h, "POST", "/compile", "statements: []")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var got export.Document
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "router", got.Name)

	rr = serve(t, h, "POST", "/compile?format=yaml", "statements: []")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "name: router")

	rr = serve(t, h, "POST", "/compile?format=xml", "statements: []")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCompile_Errors(t *testing.T) {
	d := diag.Errorf(diag.PortCount, domain.At("r.yaml", 3), "'q' :: Queue has 2 inputs")
	failed := &export.Document{Name: "router", Diagnostics: []diag.Diagnostic{d}}
	aggr := &diag.AggregateError{Diagnostics: []diag.Diagnostic{d}}

	rr := serve(t, NewHandler(&fakeCompiler{doc: failed, err: aggr}), "POST", "/compile", "x")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "port-count")

	rr = serve(t, NewHandler(&fakeCompiler{err: errors.Join(domain.ErrInvalidSource, errors.New("line 2: bad"))}), "POST", "/compile", "x")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, NewHandler(&fakeCompiler{err: errors.New("redis down")}), "POST", "/compile", "x")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCheck(t *testing.T) {
	w := diag.Warnf(diag.UnconnectedPort, domain.Location{}, "'q' push output 0 not connected")
	h := NewHandler(&fakeCompiler{doc: &export.Document{Diagnostics: []diag.Diagnostic{w}}})
	rr := serve(t, h, "POST", "/check", "x")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp CheckResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, diag.Warning, resp.Diagnostics[0].Severity)
}

func TestClasses(t *testing.T) {
	h := NewHandler(&fakeCompiler{})

	rr := serve(t, h, "GET", "/classes", "")
	var list []domain.Traits
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rr = serve(t, h, "GET", "/classes/Queue", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"processing":"h/l"`)

	rr = serve(t, h, "GET", "/classes/Nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "weft_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	rr := serve(t, NewHandler(&fakeCompiler{}, WithGatherer(reg)), "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "weft_test_total 1")

	rr = serve(t, NewHandler(&fakeCompiler{}), "GET", "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSpec(t *testing.T) {
	doc, err := LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/compile"))

	h := NewHandler(&fakeCompiler{})
	rr := serve(t, h, "GET", "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "operationId: compile")

	rr = serve(t, h, "GET", "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rr.Code, "undocumented routes reach the router")
}
