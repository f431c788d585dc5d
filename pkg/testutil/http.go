// Package testutil provides common helpers for handler and integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personas/pkg/platform/httputil"
)

// NewJSONRequest builds a request whose body is body marshaled to JSON. A
// string body is sent verbatim.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err, "failed to marshal request body")
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// Do serves req on handler and returns the recorder.
func Do(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// Decode unmarshals the recorded body into T.
func Decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "failed to unmarshal response: %s", rr.Body.String())
	return out
}

// AssertError checks the status and the error envelope code.
func AssertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) httputil.ErrorResponse {
	t.Helper()
	assert.Equal(t, status, rr.Code, "unexpected status code")
	resp := Decode[httputil.ErrorResponse](t, rr)
	assert.Equal(t, code, resp.Error, "unexpected error code")
	return resp
}
