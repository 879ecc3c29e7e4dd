package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-llm/internal/model"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestFSStorePutGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := "companies/AAPL/10-Q/2023/Q1/AAPL_10-Q_2023_Q1_llm.txt"
	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Put(ctx, key, []byte("@DOCUMENT_METADATA\n")))

	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "@DOCUMENT_METADATA\n", string(data))
}

func TestFSStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, "a/b.txt", []byte("first")))
	require.NoError(t, s.Put(ctx, "a/b.txt", []byte("second")))

	data, err := s.Get(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFSStoreGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "companies/NONE/10-K/2024/missing.txt")
	require.Error(t, err)
	var storageErr *model.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "get", storageErr.Op)
	assert.Equal(t, "companies/NONE/10-K/2024/missing.txt", storageErr.Path)
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, key := range []string{"../outside.txt", "a/../../outside.txt", "/etc/passwd", "", "."} {
		require.Error(t, s.Put(ctx, key, []byte("x")), "key %q", key)
		_, err := s.Get(ctx, key)
		require.Error(t, err, "key %q", key)
	}
}

func TestFSStoreList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, "companies/MSFT/10-K/2024/b.txt", []byte("b")))
	require.NoError(t, s.Put(ctx, "companies/MSFT/10-K/2024/a.txt", []byte("a")))
	require.NoError(t, s.Put(ctx, "companies/AAPL/10-Q/2023/Q1/c.txt", []byte("c")))

	keys, err := s.List(ctx, "companies/MSFT/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"companies/MSFT/10-K/2024/a.txt",
		"companies/MSFT/10-K/2024/b.txt",
	}, keys)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFSStoreListSkipsTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, "dir/real.txt", []byte("x")))
	// A crashed Put leaves a temp file behind; List must not surface it.
	require.NoError(t, os.WriteFile(filepath.Join(s.root, "dir", ".put-1234"), []byte("junk"), 0o644))

	keys, err := s.List(ctx, "dir/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/real.txt"}, keys)
}

func TestNewFSStoreEmptyRoot(t *testing.T) {
	_, err := NewFSStore("")
	require.Error(t, err)
}
