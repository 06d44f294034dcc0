package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	p, err := Setup(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NotNil(t, p.Tracer("x"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProviderRecordsSpans(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "longsim-test")
	rec := tracetest.NewSpanRecorder()
	p := newProvider(sdktrace.WithSpanProcessor(rec))

	_, span := p.Tracer("test").Start(context.Background(), "run")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "run", ended[0].Name())

	found := false
	for _, kv := range ended[0].Resource().Attributes() {
		if string(kv.Key) == "service.name" {
			assert.Equal(t, "longsim-test", kv.Value.AsString())
			found = true
		}
	}
	assert.True(t, found, "service name attribute")
}
