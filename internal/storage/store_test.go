package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertDedupesByHash(t *testing.T) {
	s := NewStore()

	r1 := s.Insert("/a/b.txt", "/tmp/one", 5, "hash-a")
	require.Equal(t, 1, r1)

	r2 := s.Insert("/a/b.txt", "/tmp/two", 5, "hash-a")
	require.Equal(t, 1, r2, "identical content must return the existing revision")

	r3 := s.Insert("/a/b.txt", "/tmp/three", 5, "hash-b")
	require.Equal(t, 2, r3, "distinct content gets a new, dense revision number")
}

func TestGetMissingFileAndRevision(t *testing.T) {
	s := NewStore()

	_, _, err := s.Get("/nope.txt", nil)
	require.Error(t, err)
	gfe, ok := err.(*GetFileErr)
	require.True(t, ok)
	require.False(t, gfe.RevisionNotFound)

	s.Insert("/a.txt", "/tmp/a", 1, "h1")
	rev := 7
	_, _, err = s.Get("/a.txt", &rev)
	require.Error(t, err)
	gfe, ok = err.(*GetFileErr)
	require.True(t, ok)
	require.True(t, gfe.RevisionNotFound)
}

func TestGetLatestRevision(t *testing.T) {
	s := NewStore()
	s.Insert("/a.txt", "/tmp/r1", 1, "h1")
	s.Insert("/a.txt", "/tmp/r2", 2, "h2")

	path, size, err := s.Get("/a.txt", nil)
	require.NoError(t, err)
	require.Equal(t, "/tmp/r2", path)
	require.Equal(t, int64(2), size)
}

func TestIndexDirsBuildsAncestorChain(t *testing.T) {
	s := NewStore()
	s.Insert("/a/b/c.txt", "/tmp/c", 1, "h1")

	root := s.List("/")
	require.Len(t, root, 1)
	require.Equal(t, "a", root[0].Name)
	require.True(t, root[0].IsDir)

	a := s.List("/a/")
	require.Len(t, a, 1)
	require.Equal(t, "b", a[0].Name)
	require.True(t, a[0].IsDir)

	b := s.List("/a/b/")
	require.Len(t, b, 1)
	require.Equal(t, "c.txt", b[0].Name)
	require.False(t, b[0].IsDir)
	require.Equal(t, 1, b[0].LastRevision)
}

func TestListOrdersLexicographically(t *testing.T) {
	s := NewStore()
	s.Insert("/z.txt", "/tmp/z", 1, "hz")
	s.Insert("/a.txt", "/tmp/a", 1, "ha")
	s.Insert("/m.txt", "/tmp/m", 1, "hm")

	out := s.List("/")
	require.Len(t, out, 3)
	require.Equal(t, []string{"a.txt", "m.txt", "z.txt"}, []string{out[0].Name, out[1].Name, out[2].Name})
}

func TestListReflectsHighestRevision(t *testing.T) {
	s := NewStore()
	s.Insert("/a.txt", "/tmp/1", 1, "h1")
	s.Insert("/a.txt", "/tmp/2", 1, "h2")
	s.Insert("/a.txt", "/tmp/3", 1, "h3")

	out := s.List("/")
	require.Len(t, out, 1)
	require.Equal(t, 3, out[0].LastRevision)
}

func TestListOfUnknownDirIsEmpty(t *testing.T) {
	s := NewStore()
	require.Nil(t, s.List("/nope/"))
}
