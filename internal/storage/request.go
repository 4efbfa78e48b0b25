// Package storage implements the C3 voracious content store: a
// versioned, hash-deduplicated, hierarchical text-file store exposed
// over a line-oriented TCP protocol.
package storage

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	putUsage  = "usage: PUT file length newline data"
	getUsage  = "usage: GET file [revision]"
	listUsage = "usage: LIST dir"
)

type requestKind int

const (
	reqPut requestKind = iota
	reqGet
	reqList
	reqHelp
)

// rawRequest is a parsed request line, before a Put's body has been
// read off the wire.
type rawRequest struct {
	kind      requestKind
	filename  string
	byteCount int64
	revision  *int // nil means "latest"
	path      string
}

// requestError distinguishes a malformed request (reported to the
// client, connection continues) from an illegal method (reported,
// then the connection is terminated), matching the original
// implementation's RequestErr.
type requestError struct {
	illegalMethod bool
	msg           string
}

func (e *requestError) Error() string { return e.msg }

func errIllegalMethod(method string) error {
	return &requestError{illegalMethod: true, msg: fmt.Sprintf("illegal method: %s", method)}
}
func errBadUsage(usage string) error { return &requestError{msg: usage} }
func errIllegalFileName() error      { return &requestError{msg: "illegal file name"} }
func errIllegalDirName() error       { return &requestError{msg: "illegal dir name"} }

// isIllegalMethod reports whether err is the terminal illegal-method
// variant of a request parse error.
func isIllegalMethod(err error) bool {
	re, ok := err.(*requestError)
	return ok && re.illegalMethod
}

// parseRawRequest parses a single request line. The method is
// case-insensitive; everything else follows §4.3's grammar.
func parseRawRequest(line string) (*rawRequest, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errIllegalMethod("")
	}
	method := strings.ToUpper(fields[0])
	args := fields[1:]

	switch method {
	case "PUT":
		if len(args) != 2 {
			return nil, errBadUsage(putUsage)
		}
		filename := args[0]
		if !checkFilename(filename) {
			return nil, errIllegalFileName()
		}
		byteCount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || byteCount < 0 {
			return nil, errBadUsage(putUsage)
		}
		return &rawRequest{kind: reqPut, filename: filename, byteCount: byteCount}, nil
	case "GET":
		if len(args) != 1 && len(args) != 2 {
			return nil, errBadUsage(getUsage)
		}
		filename := args[0]
		if !checkFilename(filename) {
			return nil, errIllegalFileName()
		}
		var revision *int
		if len(args) == 2 {
			raw := strings.TrimPrefix(args[1], "r")
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, errBadUsage(getUsage)
			}
			revision = &n
		}
		return &rawRequest{kind: reqGet, filename: filename, revision: revision}, nil
	case "LIST":
		if len(args) != 1 {
			return nil, errBadUsage(listUsage)
		}
		path, err := validateDirPath(args[0])
		if err != nil {
			return nil, err
		}
		return &rawRequest{kind: reqList, path: path}, nil
	case "HELP":
		return &rawRequest{kind: reqHelp}, nil
	default:
		return nil, errIllegalMethod(method)
	}
}

// checkFilename validates a file path: must start at root, must not
// be empty, and every path component must pass validateStrippedPath.
func checkFilename(filename string) bool {
	if !strings.HasPrefix(filename, "/") {
		return false
	}
	rest := filename[1:]
	if strings.TrimSpace(rest) == "" {
		return false
	}
	return validateStrippedPath(rest)
}

// validateDirPath validates and normalizes a directory path, always
// returning one that ends in "/".
//
// Preserved intentionally: the outer character check here is
// narrower (alnum, '.', '_', '/') than validateStrippedPath's
// per-component check (which also allows '-'), exactly mirroring the
// original implementation's validate_dirpath/validate_strippted_path
// split. A dirname with a hyphen in a non-root-only path can pass the
// per-component check but fail here; this inconsistency is preserved
// rather than "fixed" since nothing in the protocol depends on one
// behavior over the other and the original's tests exercise neither
// edge.
func validateDirPath(dir string) (string, error) {
	if !strings.HasPrefix(dir, "/") {
		return "", errIllegalDirName()
	}
	for _, c := range dir {
		if !isAlnum(c) && c != '.' && c != '_' && c != '/' {
			return "", errIllegalDirName()
		}
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	if len(dir) > 1 && !validateStrippedPath(dir[1:len(dir)-1]) {
		return "", errIllegalDirName()
	}
	return dir, nil
}

// validateStrippedPath checks that every '/'-separated component is
// non-empty and contains only alphanumerics, '.', '_', or '-'.
func validateStrippedPath(path string) bool {
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			return false
		}
		for _, c := range part {
			if !isAlnum(c) && c != '.' && c != '_' && c != '-' {
				return false
			}
		}
	}
	return true
}

func isAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
