package tracing

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shelfmates/shelfmates/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_NoEndpoint(t *testing.T) {
	t.Parallel()
	cfg := config.NewForTest()

	shutdown, err := Setup(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestEnd(t *testing.T) {
	t.Parallel()
	recorder := tracetest.NewSpanRecorder()
	tp := NewProvider(config.NewForTest(), sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	run := func(name string, fail bool) {
		var err error
		_, span := tracer.Start(context.Background(), name)
		defer End(span, &err)
		if fail {
			err = errors.New("store unavailable")
		}
	}
	run("ok", false)
	run("failed", true)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "ok", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Empty(t, spans[0].Events())

	assert.Equal(t, "failed", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "store unavailable", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestNewProvider_Resource(t *testing.T) {
	t.Parallel()
	cfg := config.NewForTest()
	cfg.TracingServiceName = "shelfmates-test"

	recorder := tracetest.NewSpanRecorder()
	tp := NewProvider(cfg, sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), "span")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := map[string]string{}
	for _, kv := range spans[0].Resource().Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "shelfmates-test", attrs["service.name"])
	assert.Equal(t, "test", attrs["deployment.environment"])
}
