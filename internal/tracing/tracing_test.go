package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStart_NoEndpointDisablesExport(t *testing.T) {
	p, err := Start(context.Background(), Config{ServiceName: "onsets-test"}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestClose_NilProviderIsNoOp(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Close())
	assert.NoError(t, (&Provider{}).Close())
}
