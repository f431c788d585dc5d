package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"personas/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.3 "}, "10.0.0.2:1234", "198.51.100.3"},
		{"ipv4 remote", nil, "192.0.2.10:5555", "192.0.2.10"},
		{"ipv6 remote", nil, "[::1]:8080", "::1"},
		{"empty remote", nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadataStoresIP(t *testing.T) {
	var got string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.ClientIP(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:9999"
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "192.0.2.1", got)
}
