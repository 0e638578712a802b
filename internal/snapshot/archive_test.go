package snapshot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestArchiveLayout(t *testing.T) {
	store := NewMemoryStore()
	a := NewArchiver(store, "audits", zap.NewNop())

	uri, err := a.Archive(context.Background(), "audit-1", "https://example.com/pricing", []byte("<html></html>"))
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(uri, "mem://audits/audit-1/"))
	assert.True(t, strings.HasSuffix(uri, ".html"))

	path := strings.TrimPrefix(uri, "mem://")
	data, ok := store.Get(path)
	require.True(t, ok)
	assert.Equal(t, "<html></html>", string(data))
}

func TestArchiveStablePathPerURL(t *testing.T) {
	store := NewMemoryStore()
	a := NewArchiver(store, "audits", zap.NewNop())
	ctx := context.Background()

	first, err := a.Archive(ctx, "audit-1", "https://example.com/a", []byte("v1"))
	require.NoError(t, err)
	second, err := a.Archive(ctx, "audit-1", "https://example.com/a", []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := a.Archive(ctx, "audit-1", "https://example.com/b", []byte("v1"))
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestArchiverDisabled(t *testing.T) {
	a := NewArchiver(nil, "audits", zap.NewNop())
	assert.False(t, a.Enabled())

	uri, err := a.Archive(context.Background(), "audit-1", "https://example.com/", []byte("x"))
	assert.NoError(t, err)
	assert.Empty(t, uri)
}
