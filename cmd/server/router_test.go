package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	personasservice "personas/internal/personas/service"
	"personas/internal/personas/store"
	"personas/internal/platform/config"
	"personas/internal/platform/logger"
	auditmemory "personas/pkg/platform/audit/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	in := &infra{
		storage:  "memory",
		registry: store.NewInMemory(),
		logs:     auditmemory.NewInMemoryStore(),
		tx:       &personasservice.LockTx{},
	}
	reg := prometheus.NewRegistry()
	a, err := buildApp(config.Default(), in, reg, logger.Discard())
	require.NoError(t, err)
	srv := httptest.NewServer(newRouter(a, reg, logger.Discard()))
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRegistryToQuestionFlow(t *testing.T) {
	srv := newTestServer(t)

	body := `{
		"tipo_documento": "Cédula",
		"numero_documento": "1020304050",
		"primer_nombre": "Ana",
		"apellidos": "Gómez",
		"fecha_nacimiento": "1990-03-04",
		"genero": "Femenino",
		"correo_electronico": "ana@example.com",
		"celular": "3001234567"
	}`
	resp, err := http.Post(srv.URL+"/personas/", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/consulta-nlp", "application/json",
		bytes.NewBufferString(`{"pregunta": "¿Cuántas personas hay?"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var answer struct {
		Respuesta string           `json:"respuesta"`
		Contexto  []map[string]any `json:"contexto"`
	}
	decode(t, resp, &answer)
	assert.Equal(t, "Hay 1 personas registradas en el sistema.", answer.Respuesta)
	require.Len(t, answer.Contexto, 1)
	assert.Equal(t, "1990-03-04", answer.Contexto[0]["fecha_nacimiento"])

	resp, err = http.Get(srv.URL + "/logs/resumen")
	require.NoError(t, err)
	var summary struct {
		Total int `json:"total_operaciones"`
	}
	decode(t, resp, &summary)
	assert.Equal(t, 2, summary.Total, "CREATE and CONSULTA_NLP")

	resp, err = http.Get(srv.URL + "/estadisticas")
	require.NoError(t, err)
	var stats struct {
		Total int `json:"total_personas"`
	}
	decode(t, resp, &stats)
	assert.Equal(t, 1, stats.Total)
}

func TestHealthRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var nlpHealth map[string]any
	decode(t, resp, &nlpHealth)
	assert.Equal(t, "nlp", nlpHealth["service"])
	assert.Equal(t, false, nlpHealth["gemini_available"])

	resp, err = http.Get(srv.URL + "/health/consultas")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/health/billing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
