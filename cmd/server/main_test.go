package main

import (
	"context"
	"testing"

	"github.com/atinyakov/HorosCase/internal/config"
	"github.com/atinyakov/HorosCase/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenStores_InMemory(t *testing.T) {
	auth, data, closeStore, err := openStores(context.Background(), &config.Options{}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, closeStore)
	assert.NoError(t, closeStore())

	store, ok := auth.(*memstore.Store)
	require.True(t, ok, "auth store = %T; want *memstore.Store", auth)
	assert.Same(t, store, data)
}

func TestOpenStores_UnreachableDatabase(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err := openStores(ctx, &config.Options{DatabaseDSN: "postgres://u:p@127.0.0.1:1/none?sslmode=disable"}, zap.NewNop())
	assert.Error(t, err)
}
