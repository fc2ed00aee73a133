package main

import (
	"bufio"
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixClock(t *testing.T) {
	t.Helper()
	saved := timeNow
	timeNow = func() time.Time {
		return time.Date(2025, time.July, 5, 9, 3, 7, 0, time.FixedZone("IST", 5*3600+1800))
	}
	t.Cleanup(func() { timeNow = saved })
}

func TestWriteResponse(t *testing.T) {
	fixClock(t)
	res := OK([]byte("FooBar"), "text/plain")
	w := new(bytes.Buffer)
	require.NoError(t, WriteResponse(w, res, "GET"))

	expect := "HTTP/1.1 200 OK\r\n" +
		"Connection: close\r\n" +
		"Content-Length: 6\r\n" +
		"Content-Type: text/plain\r\n" +
		"Date: Sat, 05 Jul 2025 03:33:07 GMT\r\n" +
		"Server: http4j/1.0\r\n" +
		"\r\n" +
		"FooBar"
	assert.Equal(t, expect, w.String())
}

func TestWriteResponseOverridesContentLength(t *testing.T) {
	res := OK([]byte("abc"), "")
	res.Headers.Set("content-length", "999")
	res.Headers.Set("Server", "imposter")
	w := new(bytes.Buffer)
	require.NoError(t, WriteResponse(w, res, "GET"))

	got, err := readResponse(bufio.NewReader(w), false)
	require.NoError(t, err)
	assert.Equal(t, "3", got.Headers["content-length"])
	assert.Equal(t, "http4j/1.0", got.Headers["server"])
	assert.Equal(t, "abc", string(got.Body))
	_, hasType := got.Headers["content-type"]
	assert.False(t, hasType)
}

func TestWriteResponseKeepsCallerHeaders(t *testing.T) {
	res := OK([]byte("{}"), "application/json")
	res.Headers.Set("Content-Type", "text/x-custom")
	res.Headers.Set("Date", "yesterday")
	res.Headers.Set("Connection", "keep-alive")
	w := new(bytes.Buffer)
	require.NoError(t, WriteResponse(w, res, "GET"))

	got, err := readResponse(bufio.NewReader(bytes.NewReader(w.Bytes())), false)
	require.NoError(t, err)
	assert.Equal(t, "text/x-custom", got.Headers["content-type"])
	assert.Equal(t, "yesterday", got.Headers["date"])
	assert.Equal(t, "keep-alive", got.Headers["connection"])
	assert.Equal(t, 1, bytes.Count(w.Bytes(), []byte("Date:")))
}

func TestWriteResponseHead(t *testing.T) {
	for _, method := range []string{"HEAD", "head", "Head"} {
		res := OK([]byte("FooBar"), "text/plain")
		w := new(bytes.Buffer)
		require.NoError(t, WriteResponse(w, res, method))

		assert.True(t, bytes.HasSuffix(w.Bytes(), []byte("\r\n\r\n")), "method %s", method)
		got, err := readResponse(bufio.NewReader(w), true)
		require.NoError(t, err)
		assert.Equal(t, "6", got.Headers["content-length"])
	}
}

func TestWriteResponseUpdatesHeaders(t *testing.T) {
	res := NotFound([]byte("nope"), "text/plain")
	require.NoError(t, WriteResponse(new(bytes.Buffer), res, "GET"))
	assert.Equal(t, "4", res.Headers.Get("content-length"))
	assert.Equal(t, "close", res.Headers.Get("connection"))
	assert.True(t, res.Headers.Has("Date"))
}

func TestWriteResponseNilHeadersAndBody(t *testing.T) {
	res := &Response{Status: 204, Reason: "No Content"}
	w := new(bytes.Buffer)
	require.NoError(t, WriteResponse(w, res, "DELETE"))
	got, err := readResponse(bufio.NewReader(w), false)
	require.NoError(t, err)
	assert.Equal(t, 204, got.Status)
	assert.Equal(t, "No Content", got.Phrase)
	assert.Equal(t, "0", got.Headers["content-length"])
}

// Whatever the body, a client reading Content-Length gets exactly it.
func TestWriteResponseContentLengthRoundTrip(t *testing.T) {
	bodies := [][]byte{nil, {}, []byte("x"), []byte("héllo wörld"), bytes.Repeat([]byte{0, 1, 2, 0xff}, 3000)}
	for i, body := range bodies {
		res := NewResponse(200, "OK", body, "application/octet-stream")
		res.Headers.Set("Content-Length", "1")
		w := new(bytes.Buffer)
		require.NoError(t, WriteResponse(w, res, "POST"))

		got, err := readResponse(bufio.NewReader(w), false)
		require.NoError(t, err, "body %d", i)
		assert.Equal(t, strconv.Itoa(len(body)), got.Headers["content-length"], "body %d", i)
		assert.Equal(t, len(body), len(got.Body), "body %d", i)
	}
}

func TestCapitalizeHeader(t *testing.T) {
	assert.Equal(t, "Content-Type", capitalizeHeader("content-type"))
	assert.Equal(t, "X-Request-Id", canonicalHeader("x-REQUEST-id"))
	assert.Equal(t, "Www-Authenticate", canonicalHeader("WWW-Authenticate"))
	assert.Equal(t, "", canonicalHeader(""))
}
