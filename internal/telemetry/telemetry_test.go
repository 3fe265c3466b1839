package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Stdout(t *testing.T) {
	var buf bytes.Buffer
	p, err := Setup("stdout", "waferstats-test", &buf)
	require.NoError(t, err)

	_, span := p.Tracer.Start(context.Background(), "merge")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name":"merge"`)
	assert.Contains(t, buf.String(), "waferstats-test")
}

func TestSetup_None(t *testing.T) {
	p, err := Setup("none", "", nil)
	require.NoError(t, err)

	_, span := p.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_Unknown(t *testing.T) {
	_, err := Setup("jaeger", "", nil)
	assert.Error(t, err)
}

func TestTracer_Fallback(t *testing.T) {
	assert.NotNil(t, Tracer(nil))
}
