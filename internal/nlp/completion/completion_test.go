package completion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personas/internal/platform/config"
	"personas/internal/platform/logger"
	"personas/pkg/platform/circuit"
)

type stubProvider struct {
	available bool
	results   []Result
	calls     atomic.Int32
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Available() bool { return s.available }

func (s *stubProvider) Complete(context.Context, string) Result {
	n := int(s.calls.Add(1)) - 1
	if n >= len(s.results) {
		return s.results[len(s.results)-1]
	}
	return s.results[n]
}

func TestSuccessRejectsBlankText(t *testing.T) {
	assert.True(t, Success("hola").OK())

	r := Success("  \n")
	require.False(t, r.OK())
	assert.Equal(t, CategoryEmpty, r.Failure.Category)
}

func TestDisabledNeverAvailable(t *testing.T) {
	var p Provider = Disabled{}
	assert.False(t, p.Available())
	r := p.Complete(context.Background(), "x")
	require.False(t, r.OK())
	assert.ErrorIs(t, r.Failure, ErrNotConfigured)
}

func TestGeminiComplete(t *testing.T) {
	t.Run("joins candidate parts", func(t *testing.T) {
		var gotPath, gotKey, gotQuery string
		var gotBody geminiRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.Header.Get("x-goog-api-key")
			gotQuery = r.URL.RawQuery
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, &gotBody)
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hay "},{"text":"2 personas."}]},"finishReason":"STOP"}]}`))
		}))
		defer srv.Close()

		g := NewGemini("k3y", "", WithGeminiBaseURL(srv.URL))
		r := g.Complete(context.Background(), "¿cuántas?")

		require.True(t, r.OK(), "failure: %v", r.Failure)
		assert.Equal(t, "Hay 2 personas.", r.Text)
		assert.Equal(t, "/"+DefaultGeminiModel+":generateContent", gotPath)
		assert.Equal(t, "k3y", gotKey)
		assert.Empty(t, gotQuery)
		require.Len(t, gotBody.Contents, 1)
		assert.Equal(t, "¿cuántas?", gotBody.Contents[0].Parts[0].Text)
	})

	cases := []struct {
		name     string
		status   int
		body     string
		category Category
	}{
		{"api error envelope", http.StatusBadRequest, `{"error":{"code":400,"message":"bad key","status":"INVALID_ARGUMENT"}}`, CategoryAPI},
		{"rate limited", http.StatusTooManyRequests, `{}`, CategoryRateLimited},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, CategoryEmpty},
		{"garbage", http.StatusOK, `not json`, CategoryAPI},
		{"server error", http.StatusInternalServerError, `{}`, CategoryAPI},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			r := NewGemini("k", "m", WithGeminiBaseURL(srv.URL)).Complete(context.Background(), "p")
			require.False(t, r.OK())
			assert.Equal(t, tc.category, r.Failure.Category)
		})
	}

	t.Run("deadline", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		r := NewGemini("k", "m", WithGeminiBaseURL(srv.URL)).Complete(ctx, "p")
		require.False(t, r.OK())
		assert.Equal(t, CategoryTimeout, r.Failure.Category)
	})

	t.Run("transport failure does not expose the key", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		r := NewGemini("SECRET-KEY-123", "", WithGeminiBaseURL(addr)).Complete(context.Background(), "p")
		require.False(t, r.OK())
		assert.Equal(t, CategoryTransport, r.Failure.Category)
		assert.NotContains(t, r.Failure.Error(), "SECRET-KEY-123")
		assert.NotContains(t, r.Failure.Err.Error(), "SECRET-KEY-123")
	})

	t.Run("unconfigured", func(t *testing.T) {
		g := NewGemini("", "")
		assert.False(t, g.Available())
		assert.Equal(t, CategoryNotConfigured, g.Complete(context.Background(), "p").Failure.Category)
	})
}

func TestOpenAIComplete(t *testing.T) {
	t.Run("returns first choice", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"Luis Pérez"},"finish_reason":"stop"}]}`))
		}))
		defer srv.Close()

		r := NewOpenAI("sk-test", "", srv.URL+"/v1").Complete(context.Background(), "¿quién?")
		require.True(t, r.OK(), "failure: %v", r.Failure)
		assert.Equal(t, "Luis Pérez", r.Text)
	})

	t.Run("maps status codes", func(t *testing.T) {
		for status, category := range map[int]Category{
			http.StatusTooManyRequests:     CategoryRateLimited,
			http.StatusInternalServerError: CategoryAPI,
		} {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
			}))
			r := NewOpenAI("sk-test", "", srv.URL+"/v1").Complete(context.Background(), "p")
			srv.Close()

			require.False(t, r.OK())
			assert.Equal(t, category, r.Failure.Category, "status %d", status)
		}
	})
}

func TestRateLimited(t *testing.T) {
	t.Run("non-positive rpm returns the provider unchanged", func(t *testing.T) {
		inner := &stubProvider{available: true, results: []Result{Success("ok")}}
		assert.Same(t, inner, NewRateLimited(inner, 0))
	})

	t.Run("second call within the interval fails fast on a short deadline", func(t *testing.T) {
		inner := &stubProvider{available: true, results: []Result{Success("ok")}}
		p := NewRateLimited(inner, 1)

		assert.True(t, p.Complete(context.Background(), "p").OK())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		r := p.Complete(ctx, "p")
		require.False(t, r.OK())
		assert.Equal(t, CategoryRateLimited, r.Failure.Category)
		assert.Equal(t, int32(1), inner.calls.Load())
	})
}

func TestGuarded(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newBreaker := func() *circuit.Breaker {
		return circuit.New("test",
			circuit.WithFailureThreshold(2),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(time.Minute),
			circuit.WithClock(func() time.Time { return now }),
		)
	}

	t.Run("opens after consecutive failures and short-circuits", func(t *testing.T) {
		inner := &stubProvider{available: true, results: []Result{Failed(CategoryTransport, assert.AnError)}}
		g := NewGuarded(inner, newBreaker(), logger.Discard())

		assert.Equal(t, CategoryTransport, g.Complete(context.Background(), "p").Failure.Category)
		assert.True(t, g.Available())
		assert.Equal(t, CategoryTransport, g.Complete(context.Background(), "p").Failure.Category)
		assert.False(t, g.Available())

		r := g.Complete(context.Background(), "p")
		assert.Equal(t, CategoryCircuitOpen, r.Failure.Category)
		assert.Equal(t, int32(2), inner.calls.Load())
	})

	t.Run("rate limiting does not trip the breaker", func(t *testing.T) {
		inner := &stubProvider{available: true, results: []Result{Failed(CategoryRateLimited, assert.AnError)}}
		b := newBreaker()
		g := NewGuarded(inner, b, logger.Discard())
		for range 5 {
			g.Complete(context.Background(), "p")
		}
		assert.False(t, b.IsOpen())
	})

	t.Run("successful probe closes the circuit", func(t *testing.T) {
		inner := &stubProvider{available: true, results: []Result{
			Failed(CategoryAPI, assert.AnError),
			Failed(CategoryAPI, assert.AnError),
			Success("ok"),
		}}
		b := newBreaker()
		g := NewGuarded(inner, b, logger.Discard())
		g.Complete(context.Background(), "p")
		g.Complete(context.Background(), "p")
		require.True(t, b.IsOpen())

		now = now.Add(2 * time.Minute)
		r := g.Complete(context.Background(), "p")
		assert.True(t, r.OK())
		assert.False(t, b.IsOpen())
	})

	t.Run("unconfigured backend", func(t *testing.T) {
		g := NewGuarded(&stubProvider{}, newBreaker(), logger.Discard())
		assert.False(t, g.Available())
		assert.Equal(t, CategoryNotConfigured, g.Complete(context.Background(), "p").Failure.Category)
	})
}

func TestNewFromConfig(t *testing.T) {
	p, err := New(config.Completion{Provider: "gemini"}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, Disabled{}, p)

	p, err = New(config.Completion{Provider: "gemini", GeminiAPIKey: "k", RPM: 60}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
	assert.True(t, p.Available())

	p, err = New(config.Completion{Provider: "openai", OpenAIAPIKey: "k"}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = New(config.Completion{Provider: "anthropic", GeminiAPIKey: "k"}, logger.Discard())
	assert.Error(t, err)
}
