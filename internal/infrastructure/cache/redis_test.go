package cache

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/gs1bridge/internal/infrastructure/config"
)

func TestNewRedisClient_Unreachable(t *testing.T) {
	// grab a free port and close it so nothing is listening there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = NewRedisClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: port}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
