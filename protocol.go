package main

import (
	"strings"
)

const (
	httpVersion   = "HTTP/1.1"
	serverProduct = "http4j/1.0"
)

// RequestHeader maps a lower-cased header name to every value received for
// it, in arrival order.
type RequestHeader map[string][]string

func (h RequestHeader) add(name, value string) {
	name = strings.ToLower(name)
	h[name] = append(h[name], value)
}

// Get returns the first value of the header, or "" if it is absent.
func (h RequestHeader) Get(name string) string {
	vs := h[strings.ToLower(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func (h RequestHeader) Values(name string) []string {
	return h[strings.ToLower(name)]
}

func (h RequestHeader) Has(name string) bool {
	_, ok := h[strings.ToLower(name)]
	return ok
}

// Request is a parsed HTTP/1.1 request. It is not modified after parsing.
type Request struct {
	Method  string
	Path    string
	Version string
	Headers RequestHeader
	Body    []byte
}

// Not map[string][]string, unlike http.Header: a response carries one value
// per header name. Names are stored canonicalized.
type HTTPHeader map[string]string

func (h HTTPHeader) Set(name, value string) {
	h[canonicalHeader(name)] = value
}

func (h HTTPHeader) Get(name string) string {
	return h[canonicalHeader(name)]
}

func (h HTTPHeader) Has(name string) bool {
	_, ok := h[canonicalHeader(name)]
	return ok
}

func (h HTTPHeader) Del(name string) {
	delete(h, canonicalHeader(name))
}

// Response is built fresh for every request and discarded once written.
type Response struct {
	Status      int
	Reason      string
	Body        []byte
	ContentType string
	Headers     HTTPHeader
}

func NewResponse(status int, reason string, body []byte, contentType string) *Response {
	if body == nil {
		body = []byte{}
	}
	return &Response{
		Status:      status,
		Reason:      reason,
		Body:        body,
		ContentType: contentType,
		Headers:     make(HTTPHeader),
	}
}

func OK(body []byte, contentType string) *Response {
	return NewResponse(200, StatusText(200), body, contentType)
}

func BadRequest(body []byte, contentType string) *Response {
	return NewResponse(400, StatusText(400), body, contentType)
}

func Forbidden(body []byte, contentType string) *Response {
	return NewResponse(403, StatusText(403), body, contentType)
}

func NotFound(body []byte, contentType string) *Response {
	return NewResponse(404, StatusText(404), body, contentType)
}

func InternalServerError(body []byte, contentType string) *Response {
	return NewResponse(500, StatusText(500), body, contentType)
}

// MethodNotAllowed lists the allowed methods both in the Allow header and
// in a plain-text body.
func MethodNotAllowed(allowed []string) *Response {
	allow := strings.Join(allowed, ", ")
	res := NewResponse(405, StatusText(405),
		[]byte("Method Not Allowed. Allowed: "+allow), "text/plain")
	res.Headers.Set("Allow", allow)
	return res
}

var statusText = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	206: "Partial Content",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	413: "Content Too Large",
	414: "URI Too Long",
	415: "Unsupported Media Type",
	418: "I'm a teapot",
	429: "Too Many Requests",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// StatusText returns the reason phrase for code, or "Unknown".
func StatusText(code int) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	return "Unknown"
}
