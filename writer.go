package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// IMF-fixdate, RFC 7231 section 7.1.1.1
const timeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Used to stamp Date headers. Can be mocked.
var timeNow = time.Now

func capitalizeHeader(h string) string {
	ret := make([]rune, 0, len(h))
	upper := true
	for _, r := range h {
		if upper && unicode.IsLetter(r) {
			ret = append(ret, unicode.ToUpper(r))
			upper = false
		} else {
			ret = append(ret, r)
		}
		if r == '-' {
			upper = true
		}
	}
	return string(ret)
}

// canonicalHeader turns any spelling of a header name into the form it is
// stored and written in, e.g. "content-TYPE" -> "Content-Type".
func canonicalHeader(name string) string {
	return capitalizeHeader(strings.ToLower(name))
}

// WriteResponse writes res as a response to a request with the given
// method. The framing headers are fixed up on res.Headers before anything
// is written: Content-Length always reflects len(res.Body), Server is always
// ours, and Date, Content-Type and Connection are filled in when missing.
// For HEAD the body is withheld but Content-Length still describes it.
func WriteResponse(w io.Writer, res *Response, method string) error {
	if res.Headers == nil {
		res.Headers = make(HTTPHeader)
	}
	h := res.Headers
	if !h.Has("Date") {
		h.Set("Date", timeNow().UTC().Format(timeFormat))
	}
	if res.ContentType != "" && !h.Has("Content-Type") {
		h.Set("Content-Type", res.ContentType)
	}
	h.Set("Server", serverProduct)
	h.Set("Content-Length", strconv.Itoa(len(res.Body)))
	if !h.Has("Connection") {
		h.Set("Connection", "close")
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %d %s\r\n", httpVersion, res.Status, res.Reason)
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(bw, "%s: %s\r\n", k, h[k])
	}
	bw.WriteString("\r\n")
	if err := bw.Flush(); err != nil {
		return err
	}

	if strings.EqualFold(method, "HEAD") || len(res.Body) == 0 {
		return nil
	}
	_, err := w.Write(res.Body)
	return err
}
