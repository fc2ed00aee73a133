package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// hard limits, overridable through ReaderSettings
	maxLineLength = 8 << 10
	maxBodyLength = 64 << 20

	// how much of an offending line is echoed back in a parse error
	maxEchoLength = 64
)

// ErrStreamEnded is returned by ReadRequest when the peer closed the stream
// before sending any part of a request. It is not a failure.
var ErrStreamEnded = errors.New("stream ended before request")

var errLineTooLong = errors.New("line too long")

// ParseError is a protocol error: the bytes on the stream do not form an
// acceptable request. The connection cannot be trusted afterwards.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason
}

func parseErrorf(format string, args ...interface{}) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

type ReaderSettings struct {
	MaxLineLength int
	MaxBodyLength int
}

func prepareSettings(settings ReaderSettings) ReaderSettings {
	if settings.MaxLineLength < 1 {
		settings.MaxLineLength = maxLineLength
	}
	if settings.MaxBodyLength < 1 {
		settings.MaxBodyLength = maxBodyLength
	}
	return settings
}

type requestReader struct {
	r        *bufio.Reader
	settings ReaderSettings
}

// similar to readLineSlice() in net/textproto/reader.go
func (r *requestReader) readLine() (string, error) {
	var line []byte
	for {
		l, more, err := r.r.ReadLine()
		if err != nil {
			return "", err
		}
		if line == nil && !more {
			if len(l) > r.settings.MaxLineLength {
				return "", errLineTooLong
			}
			return string(l), nil
		}
		line = append(line, l...)
		if len(line) > r.settings.MaxLineLength {
			return "", errLineTooLong
		}
		if !more {
			break
		}
	}
	return string(line), nil
}

// ReadRequest reads one request off r. It returns ErrStreamEnded if the
// stream ends before a request line, a *ParseError if the request is
// malformed, and any other error as received from the stream.
func ReadRequest(r *bufio.Reader, settings ReaderSettings) (*Request, error) {
	rr := &requestReader{r, prepareSettings(settings)}

	line, err := rr.skipBlankLines()
	if err != nil {
		return nil, err
	}
	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}
	if err := rr.readHeaders(req.Headers); err != nil {
		return nil, err
	}

	if req.Headers.Has("transfer-encoding") {
		te := req.Headers.Get("transfer-encoding")
		if !strings.EqualFold(te, "identity") {
			return nil, parseErrorf("Unsupported Transfer-Encoding: %s", echo(te))
		}
	}

	if req.Headers.Has("content-length") {
		cl, err := contentLength(req.Headers)
		if err != nil {
			return nil, err
		}
		if cl > rr.settings.MaxBodyLength {
			return nil, parseErrorf("Content-Length exceeds limit: %d", cl)
		}
		if req.Body, err = rr.readBody(cl); err != nil {
			return nil, err
		}
	}

	if !req.Headers.Has("host") {
		return nil, parseErrorf("Missing required Host header")
	}
	return req, nil
}

// Clients may send stray CRLFs between requests on a kept-alive connection.
func (r *requestReader) skipBlankLines() (string, error) {
	for {
		line, err := r.readLine()
		if err == io.EOF {
			return "", ErrStreamEnded
		}
		if err == errLineTooLong {
			return "", parseErrorf("Line too long")
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) != "" {
			return line, nil
		}
	}
}

func parseRequestLine(rl string) (*Request, error) {
	fields := strings.Split(rl, " ")
	// trailing spaces are tolerated, empty fields elsewhere are not
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	if len(fields) != 3 {
		return nil, parseErrorf("Invalid request line: %s", echo(rl))
	}
	if !strings.EqualFold(fields[2], httpVersion) {
		return nil, parseErrorf("Unsupported HTTP version: %s", echo(fields[2]))
	}
	return &Request{
		Method:  fields[0],
		Path:    fields[1],
		Version: fields[2],
		Headers: make(RequestHeader),
		Body:    []byte{},
	}, nil
}

// End of stream inside the header block ends the block.
func (r *requestReader) readHeaders(headers RequestHeader) error {
	for {
		line, err := r.readLine()
		if err == io.EOF {
			return nil
		}
		if err == errLineTooLong {
			return parseErrorf("Line too long")
		}
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
		fs := strings.SplitN(line, ":", 2)
		if len(fs) != 2 {
			return parseErrorf("Malformed header line: %s", echo(line))
		}
		headers.add(strings.TrimSpace(fs[0]), strings.TrimSpace(fs[1]))
	}
}

func contentLength(h RequestHeader) (int, error) {
	cls := h.Get("content-length")
	cl, err := strconv.Atoi(cls)
	if err != nil || cl < 0 {
		return 0, parseErrorf("Invalid Content-Length value: %s", echo(cls))
	}
	return cl, nil
}

// readBody reads up to n bytes. The buffer grows with the data actually
// received, not with the declared length. A stream that ends early yields
// a shorter body; any other read error is returned.
func (r *requestReader) readBody(n int) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.r, int64(n)))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// echo makes a piece of client input safe to put in an error message that
// is sent back on the wire and written to logs.
func echo(s string) string {
	truncated := false
	if len(s) > maxEchoLength {
		s = s[:maxEchoLength]
		truncated = true
	}
	b := []byte(s)
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			b[i] = '?'
		}
	}
	if truncated {
		return string(b) + "..."
	}
	return string(b)
}
