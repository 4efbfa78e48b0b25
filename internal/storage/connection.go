package storage

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/kvlach/protohackers/internal/obs"
)

// blockSize bounds each PUT read and text-byte validation chunk, per
// the original implementation's streamed hash-while-reading PUT
// handling.
const blockSize = 4096

var readyMsg = []byte("READY\n")

// Request is a fully-read, ready-to-execute client request. For Put,
// the body has already been streamed to a temp file and hashed.
type Request struct {
	kind     requestKind
	filename string
	revision *int
	path     string
	tmpPath  string
	tmpSize  int64
	tmpHash  string
}

// connErr marks a connection-terminal error (malformed protocol
// framing, an illegal method, unexpected EOF mid-PUT-body); anything
// else is reported to the client and the connection continues.
type connErr struct{ err error }

func (e *connErr) Error() string { return e.err.Error() }
func (e *connErr) Unwrap() error { return e.err }

// countingWriter reports every byte written to the server's metrics,
// wrapping the connection's write side so every response (including
// the READY framing) counts toward bytes-out.
type countingWriter struct {
	w       io.Writer
	metrics *obs.Metrics
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if c.metrics != nil {
		c.metrics.BytesOut.Add(float64(n))
	}
	return n, err
}

// Connection is a single client session: greets with READY, then
// reads requests and sends responses until EOF or a terminal error.
type Connection struct {
	conn net.Conn
	w    io.Writer
	r    *bufio.Reader
}

// NewConnection wraps conn, sending the initial READY greeting.
func NewConnection(conn net.Conn, metrics *obs.Metrics) (*Connection, error) {
	w := &countingWriter{w: conn, metrics: metrics}
	if _, err := w.Write(readyMsg); err != nil {
		return nil, err
	}
	return &Connection{conn: conn, w: w, r: bufio.NewReader(conn)}, nil
}

// ReadRequest reads the next fully-formed request, transparently
// reporting and skipping malformed request lines (and their required
// error response) until a valid one is found, EOF is reached (nil,
// nil), or a terminal protocol error occurs.
func (c *Connection) ReadRequest() (*Request, error) {
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// A trailing partial line with no terminating newline is
				// treated the same as a clean EOF.
				return nil, nil
			}
			return nil, &connErr{err}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		raw, err := parseRawRequest(line)
		if err != nil {
			if isIllegalMethod(err) {
				if _, respErr := c.writeLine(fmt.Sprintf("ERR %s", err.Error())); respErr != nil {
					return nil, &connErr{respErr}
				}
				return nil, &connErr{err}
			}
			if respErr := c.sendErr(err.Error()); respErr != nil {
				return nil, &connErr{respErr}
			}
			continue
		}

		if raw.kind != reqPut {
			return &Request{kind: raw.kind, filename: raw.filename, revision: raw.revision, path: raw.path}, nil
		}

		req, err := c.readPutBody(raw)
		if err != nil {
			var rejected *textOnlyErr
			if errors.As(err, &rejected) {
				if werr := c.sendErr("text files only"); werr != nil {
					return nil, &connErr{werr}
				}
				continue
			}
			return nil, &connErr{err}
		}
		return req, nil
	}
}

// textOnlyErr signals a PUT body containing a byte outside the
// allowed text character set; the connection survives this error.
type textOnlyErr struct{}

func (*textOnlyErr) Error() string { return "text files only" }

// readPutBody streams exactly byteCount bytes from the connection
// into a process-scoped temp file, hashing and validating as it goes.
func (c *Connection) readPutBody(raw *rawRequest) (*Request, error) {
	f, err := os.CreateTemp("", "voracious-*")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hasher := sha1.New()
	blockLen := blockSize
	if int64(blockLen) > raw.byteCount {
		blockLen = int(raw.byteCount)
	}
	block := make([]byte, blockLen)

	var written int64
	for written < raw.byteCount {
		remain := raw.byteCount - written
		if int64(len(block)) > remain {
			block = block[:remain]
		}
		n, err := c.r.Read(block)
		if n > 0 {
			chunk := block[:n]
			if !isTextBlock(chunk) {
				os.Remove(f.Name())
				// Discard the rest of the declared body so the next
				// request line is read from where the client expects.
				if _, derr := io.CopyN(io.Discard, c.r, raw.byteCount-written-int64(n)); derr != nil {
					return nil, fmt.Errorf("unexpected eof reading PUT body: %w", derr)
				}
				return nil, &textOnlyErr{}
			}
			hasher.Write(chunk)
			if _, werr := f.Write(chunk); werr != nil {
				os.Remove(f.Name())
				return nil, werr
			}
			written += int64(n)
		}
		if err != nil {
			if written < raw.byteCount {
				os.Remove(f.Name())
				return nil, fmt.Errorf("unexpected eof reading PUT body: %w", err)
			}
			break
		}
	}

	return &Request{
		kind:     reqPut,
		filename: raw.filename,
		tmpPath:  f.Name(),
		tmpSize:  written,
		tmpHash:  hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// isTextBlock reports whether every byte is ASCII-graphic, or one of
// \r \n space tab, per §5's file-content invariant.
func isTextBlock(b []byte) bool {
	for _, c := range b {
		if c >= 0x21 && c <= 0x7e {
			continue
		}
		switch c {
		case '\r', '\n', ' ', '\t':
			continue
		}
		return false
	}
	return true
}

func (c *Connection) writeLine(s string) (int, error) {
	return c.w.Write([]byte(s + "\n"))
}

// sendOK writes an "OK ..." response followed by the READY framing
// required after every response.
func (c *Connection) sendOK(body string) error {
	if _, err := c.writeLine("OK " + body); err != nil {
		return err
	}
	_, err := c.w.Write(readyMsg)
	return err
}

func (c *Connection) sendErr(reason string) error {
	if _, err := c.writeLine("ERR " + reason); err != nil {
		return err
	}
	_, err := c.w.Write(readyMsg)
	return err
}

// SendHelp responds to a HELP request.
func (c *Connection) SendHelp() error {
	return c.sendOK("usage: HELP|GET|PUT|LIST")
}

// SendPut responds to a successful PUT with its revision number.
func (c *Connection) SendPut(revision int) error {
	return c.sendOK(fmt.Sprintf("r%d", revision))
}

// SendError responds to any request-level error.
func (c *Connection) SendError(reason string) error {
	return c.sendErr(reason)
}

// SendList responds to a LIST request.
func (c *Connection) SendList(children []ListResult) error {
	w := bufio.NewWriter(c.w)
	if _, err := fmt.Fprintf(w, "OK %d\n", len(children)); err != nil {
		return err
	}
	for _, child := range children {
		var err error
		if child.IsDir {
			_, err = fmt.Fprintf(w, "%s/ DIR\n", child.Name)
		} else {
			_, err = fmt.Fprintf(w, "%s r%d\n", child.Name, child.LastRevision)
		}
		if err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := c.w.Write(readyMsg)
	return err
}

// SendGet responds to a successful GET by streaming the file content
// from its temp path.
func (c *Connection) SendGet(tmpPath string, size int64) error {
	f, err := os.Open(tmpPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(c.w)
	if _, err := fmt.Fprintf(w, "OK %d\n", size); err != nil {
		return err
	}
	if _, err := io.CopyN(w, f, size); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err = c.w.Write(readyMsg)
	return err
}
