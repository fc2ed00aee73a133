package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// RouteConfig is the JSON route table:
//
//	{"routes": [{"method": "GET", "path": "/hello",
//	  "response": {"status": 200, "contentType": "text/plain", "body": "hi"}}]}
type RouteConfig struct {
	Routes []RouteEntry `json:"routes"`
}

type RouteEntry struct {
	Method   string        `json:"method"`
	Path     string        `json:"path"`
	Response RouteResponse `json:"response"`
}

// RouteResponse is a fixed response. BodyFile is read on every request and
// only when Body is absent.
type RouteResponse struct {
	Status      int               `json:"status"`
	ContentType string            `json:"contentType"`
	Body        *string           `json:"body"`
	BodyFile    string            `json:"bodyFile"`
	Headers     map[string]string `json:"headers"`
}

// LoadRoutes builds a Router from the JSON file at path.
func LoadRoutes(path string) (*Router, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}
	return ParseRoutes(data)
}

func ParseRoutes(data []byte) (*Router, error) {
	var config RouteConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse routes: %w", err)
	}
	router := NewRouter()
	for i, route := range config.Routes {
		if route.Method == "" || route.Path == "" {
			return nil, fmt.Errorf("route %d: method and path are required", i)
		}
		if route.Response.Status < 100 || route.Response.Status > 999 {
			return nil, fmt.Errorf("route %d (%s %s): invalid status %d",
				i, route.Method, route.Path, route.Response.Status)
		}
		router.AddRoute(route.Method, route.Path, fixedHandler(route.Response))
	}
	return router, nil
}

func fixedHandler(rc RouteResponse) Handler {
	return HandlerFunc(func(req *Request) (*Response, error) {
		var body []byte
		switch {
		case rc.Body != nil:
			body = []byte(*rc.Body)
		case rc.BodyFile != "":
			b, err := os.ReadFile(rc.BodyFile)
			if err != nil {
				return nil, err
			}
			body = b
		}
		res := NewResponse(rc.Status, StatusText(rc.Status), body, rc.ContentType)
		for k, v := range rc.Headers {
			res.Headers.Set(k, v)
		}
		return res, nil
	})
}
