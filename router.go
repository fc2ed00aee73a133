package main

import (
	"sort"
	"strings"
)

// Handler produces the response for a request. A returned error is treated
// as a connection failure: no response is sent and the connection closes.
type Handler interface {
	Handle(req *Request) (*Response, error)
}

type HandlerFunc func(req *Request) (*Response, error)

func (f HandlerFunc) Handle(req *Request) (*Response, error) {
	return f(req)
}

// Router is an exact-match route table keyed by method and path. It is
// filled once at startup and only read afterwards.
type Router struct {
	routes map[string]map[string]Handler
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]map[string]Handler)}
}

func (r *Router) AddRoute(method, path string, handler Handler) {
	method = strings.ToUpper(method)
	paths, ok := r.routes[method]
	if !ok {
		paths = make(map[string]Handler)
		r.routes[method] = paths
	}
	paths[path] = handler
}

func (r *Router) Get(path string, handler Handler) {
	r.AddRoute("GET", path, handler)
}

func (r *Router) Post(path string, handler Handler) {
	r.AddRoute("POST", path, handler)
}

// FindHandler returns nil when nothing is registered for method and path.
func (r *Router) FindHandler(method, path string) Handler {
	paths, ok := r.routes[strings.ToUpper(method)]
	if !ok {
		return nil
	}
	return paths[path]
}

// AllowedMethods returns the sorted methods registered for path.
func (r *Router) AllowedMethods(path string) []string {
	var methods []string
	for method, paths := range r.routes {
		if _, ok := paths[path]; ok {
			methods = append(methods, method)
		}
	}
	sort.Strings(methods)
	return methods
}
