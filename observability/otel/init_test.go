package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" api-key = abc ,broken, =skip,tenant=deals")
	require.Equal(t, map[string]string{"api-key": "abc", "tenant": "deals"}, headers)
}

func TestInitWithoutExporters(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)

	shutdown, err := Init(context.Background(), Config{ServiceName: "dealsd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	require.NotNil(t, Tracer("dealsd"))
}

func TestSamplerRatio(t *testing.T) {
	require.Contains(t, Sampler(0).Description(), "AlwaysOnSampler")
	require.Contains(t, Sampler(1.5).Description(), "AlwaysOnSampler")
	require.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
