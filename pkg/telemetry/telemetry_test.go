package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg := LoadFromEnv()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "graph-import", cfg.ServiceName)
	assert.Equal(t, "unknown", cfg.ServiceVersion)
	assert.Equal(t, "grpc", cfg.Protocol)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "TRUE")
	t.Setenv("OTEL_SERVICE_NAME", "import-svc")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "Authorization=Bearer abc,X-Team=graph")

	cfg := LoadFromEnv()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "import-svc", cfg.ServiceName)
	assert.Equal(t, "http://collector:4317", cfg.Endpoint)
	assert.Equal(t, "Bearer abc", cfg.Headers["Authorization"])
	assert.Equal(t, "graph", cfg.Headers["X-Team"])
}

func TestParseKeyValuePairs(t *testing.T) {
	assert.Empty(t, parseKeyValuePairs(""))

	m := parseKeyValuePairs("a=1, b=2 ,=bad, c=x=y")
	assert.Equal(t, "1", m["a"])
	assert.Equal(t, "2", m["b"])
	assert.Equal(t, "x=y", m["c"], "values may contain '='")
	assert.NotContains(t, m, "")
}

func TestCreateSampler(t *testing.T) {
	assert.Equal(t, trace.AlwaysSample(), createSampler(&Config{}))
	assert.Equal(t, trace.AlwaysSample(), createSampler(&Config{Sampler: "always_on"}))
	assert.Equal(t, trace.NeverSample(), createSampler(&Config{Sampler: "always_off"}))

	s := createSampler(&Config{Sampler: "traceidratio", SamplerArg: "0.25"})
	assert.Contains(t, s.Description(), "0.25")
}

func TestParseRatio(t *testing.T) {
	assert.Equal(t, 1.0, parseRatio(""))
	assert.Equal(t, 1.0, parseRatio("bogus"))
	assert.Equal(t, 0.5, parseRatio("0.5"))
	assert.Equal(t, 0.0, parseRatio("-3"))
	assert.Equal(t, 1.0, parseRatio("7"))
}

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestBuildResource(t *testing.T) {
	res, err := buildResource(&Config{
		ServiceName:    "import-svc",
		ServiceVersion: "1.2.3",
		ResourceAttrs:  map[string]string{"team": "graph"},
	})
	require.NoError(t, err)

	attrs := res.Attributes()
	found := map[string]string{}
	for _, kv := range attrs {
		found[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "import-svc", found["service.name"])
	assert.Equal(t, "1.2.3", found["service.version"])
	assert.Equal(t, "graph", found["team"])
}
