package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRawRequestPut(t *testing.T) {
	req, err := parseRawRequest("put /a/b.txt 5\n")
	require.NoError(t, err)
	require.Equal(t, reqPut, req.kind)
	require.Equal(t, "/a/b.txt", req.filename)
	require.Equal(t, int64(5), req.byteCount)
}

func TestParseRawRequestGetWithAndWithoutRevision(t *testing.T) {
	req, err := parseRawRequest("GET /a/b.txt\n")
	require.NoError(t, err)
	require.Equal(t, reqGet, req.kind)
	require.Nil(t, req.revision)

	req, err = parseRawRequest("GET /a/b.txt r3\n")
	require.NoError(t, err)
	require.NotNil(t, req.revision)
	require.Equal(t, 3, *req.revision)

	req, err = parseRawRequest("GET /a/b.txt 3\n")
	require.NoError(t, err)
	require.NotNil(t, req.revision)
	require.Equal(t, 3, *req.revision)
}

func TestParseRawRequestListRequiresLeadingSlash(t *testing.T) {
	_, err := parseRawRequest("LIST rel/path\n")
	require.Error(t, err)
	require.Equal(t, "illegal dir name", err.Error())

	req, err := parseRawRequest("LIST /a/b\n")
	require.NoError(t, err)
	require.Equal(t, "/a/b/", req.path)
}

func TestParseRawRequestIllegalMethod(t *testing.T) {
	_, err := parseRawRequest("DELETE /a.txt\n")
	require.Error(t, err)
	require.True(t, isIllegalMethod(err))
}

func TestParseRawRequestBadUsage(t *testing.T) {
	_, err := parseRawRequest("PUT /a.txt\n")
	require.Error(t, err)
	require.False(t, isIllegalMethod(err))
	require.Equal(t, putUsage, err.Error())
}

func TestParseRawRequestHelp(t *testing.T) {
	req, err := parseRawRequest("HELP\n")
	require.NoError(t, err)
	require.Equal(t, reqHelp, req.kind)
}

func TestCheckFilenameRejectsBadNames(t *testing.T) {
	require.True(t, checkFilename("/a/b.txt"))
	require.True(t, checkFilename("/a/b-c.txt"))
	require.False(t, checkFilename("a/b.txt"))
	require.False(t, checkFilename("/"))
	require.False(t, checkFilename("/a//b.txt"))
	require.False(t, checkFilename("/a/b c.txt"))
}

func TestValidateDirPathNormalizesTrailingSlash(t *testing.T) {
	dir, err := validateDirPath("/a/b")
	require.NoError(t, err)
	require.Equal(t, "/a/b/", dir)

	dir, err = validateDirPath("/a/b/")
	require.NoError(t, err)
	require.Equal(t, "/a/b/", dir)

	dir, err = validateDirPath("/")
	require.NoError(t, err)
	require.Equal(t, "/", dir)
}
