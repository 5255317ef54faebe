package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/config"
)

func TestIsNilError(t *testing.T) {
	assert.True(t, IsNilError(ErrNil))
	assert.True(t, IsNilError(fmt.Errorf("get: %w", ErrNil)))
	assert.False(t, IsNilError(fmt.Errorf("connection refused")))
	assert.False(t, IsNilError(nil))
}

func TestNewClient_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1", PoolSize: 1})
	assert.Error(t, err)
}
