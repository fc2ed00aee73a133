package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const indexFile = "index.html"

// StaticResolver serves files below a root directory. It holds no mutable
// state and is shared by all connections.
type StaticResolver struct {
	root string // absolute, symlinks resolved
	log  zerolog.Logger
}

func NewStaticResolver(root string, log zerolog.Logger) (*StaticResolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid static root %s: %w", root, err)
	}
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return nil, fmt.Errorf("invalid static root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("invalid static root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid static root %s: not a directory", root)
	}
	return &StaticResolver{root: abs, log: log}, nil
}

func (s *StaticResolver) Root() string {
	return s.root
}

// Resolve maps a raw request path to a response. Paths that canonicalize
// to somewhere outside the root get 403 whether or not the target exists.
func (s *StaticResolver) Resolve(requestPath string) *Response {
	target := s.canonical(filepath.Join(s.root, filepath.FromSlash(requestPath)))
	if !isDescendant(s.root, target) {
		s.log.Warn().Str("path", requestPath).Msg("static path escapes root")
		return Forbidden([]byte("Access Denied"), "text/plain")
	}

	info, err := os.Stat(target)
	if err != nil {
		return NotFound([]byte("File not found"), "text/plain")
	}

	if info.IsDir() {
		index := s.canonical(filepath.Join(target, indexFile))
		if _, err := os.Stat(index); err != nil {
			return s.listDirectory(target, requestPath)
		}
		if !isDescendant(s.root, index) {
			return Forbidden([]byte("Access Denied"), "text/plain")
		}
		target = index
	}

	content, err := os.ReadFile(target)
	if err != nil {
		s.log.Error().Err(err).Str("path", requestPath).Msg("error serving static file")
		return InternalServerError([]byte("Error reading file"), "")
	}
	return OK(content, mimeType(filepath.Base(target)))
}

// canonical resolves symlinks in p. Paths that do not exist keep their
// lexical form, which filepath.Join has already cleaned.
func (s *StaticResolver) canonical(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return p
}

// isDescendant reports whether p is root or lies below it, comparing whole
// path components so that /srv/www-private is not inside /srv/www.
func isDescendant(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

func (s *StaticResolver) listDirectory(dir, requestPath string) *Response {
	des, err := os.ReadDir(dir)
	if err != nil {
		s.log.Error().Err(err).Str("path", requestPath).Msg("error listing directory")
		return InternalServerError([]byte("Unable to list directory"), "text/plain")
	}
	entries := make([]listingEntry, 0, len(des))
	for _, de := range des {
		// Stat follows symlinks, so a link to a directory lists as one.
		info, err := os.Stat(filepath.Join(dir, de.Name()))
		if err != nil {
			if info, err = de.Info(); err != nil {
				continue
			}
		}
		entries = append(entries, listingEntry{
			Name:    de.Name(),
			IsDir:   info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return OK(renderListing(requestPath, entries), "text/html")
}
