package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.PutObject(ctx, "archive/a.json", []byte(`{"x":1}`), "application/json"))

	body, err := m.GetObject(ctx, "archive/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(body))
	assert.Equal(t, []string{"archive/a.json"}, m.Keys())

	url, err := m.GeneratePresignedDownloadURL(ctx, "archive/a.json", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "memory:///archive/a.json"))

	require.NoError(t, m.DeleteObject(ctx, "archive/a.json"))
	_, err = m.GetObject(ctx, "archive/a.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryStore_PutCopiesBody(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	body := []byte("abc")
	require.NoError(t, m.PutObject(ctx, "k", body, "text/plain"))
	body[0] = 'z'

	got, err := m.GetObject(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryStore_PresignMissing(t *testing.T) {
	_, err := NewMemoryStore().GeneratePresignedDownloadURL(context.Background(), "nope", 0)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
