package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tvoe/mediaserver/internal/config"
)

func TestNewServerShutdownTimeout(t *testing.T) {
	cfg := config.APIConfig{Port: 8080, ShutdownTimeout: 3 * time.Second}
	s := NewServer(cfg, http.NotFoundHandler(), zap.NewNop())
	assert.Equal(t, 3*time.Second, s.shutdownTimeout)

	// An unset timeout falls back to the package default.
	s = NewServer(config.APIConfig{Port: 8080}, http.NotFoundHandler(), zap.NewNop())
	assert.Equal(t, defaultShutdownTimeout, s.shutdownTimeout)
}

func TestServerStopBeforeStart(t *testing.T) {
	s := NewServer(config.APIConfig{Port: 8080, ShutdownTimeout: time.Second},
		http.NotFoundHandler(), zap.NewNop())
	require.NoError(t, s.Stop(context.Background()))
}
