package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func Test_newResource(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ServiceName = "cdd-test"

	res, err := newResource(cfg)
	require.NoError(t, err)

	value, ok := res.Set().Value(attribute.Key("service.name"))
	assert.True(t, ok)
	assert.Equal(t, "cdd-test", value.AsString())
}
