package primetime

import (
	"encoding/json"
	"errors"
)

// Request is a validated isPrime request: either an integer Number, or a
// Float request (floats are never prime, by definition of the protocol).
type Request struct {
	Method string
	Number int
	Float  bool
}

type rawRequestInt struct {
	Method *string `json:"method"`
	Number *int    `json:"number"`
}

type rawRequestFloat struct {
	Method *string  `json:"method"`
	Number *float64 `json:"number"`
}

// UnwrapRequest parses a single line of JSON-RPC-ish input into a Request.
// It first tries to parse Number as an integer; on failure it retries as a
// float, since a fractional number field is valid JSON but never prime.
// Either required field missing is a malformed request.
func UnwrapRequest(line []byte) (*Request, error) {
	var asInt rawRequestInt
	if err := json.Unmarshal(line, &asInt); err != nil {
		var asFloat rawRequestFloat
		if err2 := json.Unmarshal(line, &asFloat); err2 != nil {
			return nil, err
		}
		if asFloat.Number == nil || asFloat.Method == nil {
			return nil, errors.New("required field missing")
		}
		return &Request{Method: *asFloat.Method, Number: 0, Float: true}, nil
	}
	if asInt.Number == nil || asInt.Method == nil {
		return nil, errors.New("required field missing")
	}
	return &Request{Method: *asInt.Method, Number: *asInt.Number}, nil
}

// IsValid reports whether the request names the isPrime method. Any other
// value is malformed per the protocol.
func (r Request) IsValid() bool {
	return r.Method == "isPrime"
}
