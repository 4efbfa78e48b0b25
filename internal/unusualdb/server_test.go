package unusualdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreInsertAndQuery(t *testing.T) {
	s := NewStore()
	s.Insert("foo", "bar")
	require.Equal(t, "bar", s.Query("foo"))
}

func TestStoreMissingKeyIsEmpty(t *testing.T) {
	s := NewStore()
	require.Equal(t, "", s.Query("missing"))
}

func TestStoreVersionIsReservedAndFixed(t *testing.T) {
	s := NewStore()
	s.Insert("version", "rewritten")
	require.Equal(t, versionValue, s.Query("version"))
}

func TestStoreInsertWithEqualsInValue(t *testing.T) {
	s := NewStore()
	s.Insert("foo", "bar=baz")
	require.Equal(t, "bar=baz", s.Query("foo"))
}
