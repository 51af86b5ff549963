package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsHooksInReverseOrder(t *testing.T) {
	manager := New(time.Second, nil)

	var order []string
	manager.Register("store", func(ctx context.Context) error {
		order = append(order, "store")
		return nil
	})
	manager.Register("consumer", func(ctx context.Context) error {
		order = append(order, "consumer")
		return nil
	})

	require.NoError(t, manager.Shutdown(context.Background()))
	assert.Equal(t, []string{"consumer", "store"}, order)
}

func TestShutdownJoinsFailuresAndKeepsDraining(t *testing.T) {
	manager := New(time.Second, nil)

	broken := errors.New("connection reset")
	var storeDrained bool
	manager.Register("store", func(ctx context.Context) error {
		storeDrained = true
		return nil
	})
	manager.Register("consumer", func(ctx context.Context) error {
		return broken
	})

	err := manager.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, broken)
	assert.Contains(t, err.Error(), "consumer")
	assert.True(t, storeDrained, "later failures must not skip earlier hooks")
}

func TestRegisterIgnoresNilHook(t *testing.T) {
	manager := New(time.Second, nil)
	manager.Register("noop", nil)
	assert.NoError(t, manager.Shutdown(context.Background()))
}
