package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vrsandeep/podcatch/internal/api"
	"github.com/vrsandeep/podcatch/internal/core"
	"github.com/vrsandeep/podcatch/internal/testutil"
)

type testAPI struct {
	server *api.Server
	app    *core.App
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	server, app := testutil.SetupTestServer(t)
	return &testAPI{server: server, app: app, router: server.Router()}
}

func (a *testAPI) do(t *testing.T, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set(api.APIKeyHeader, key)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}
