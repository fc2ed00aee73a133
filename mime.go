package main

import (
	"strings"
)

const defaultMimeType = "application/octet-stream"

var mimeTypes = map[string]string{
	"7z":    "application/x-7z-compressed",
	"atom":  "application/atom+xml",
	"bmp":   "image/x-ms-bmp",
	"css":   "text/css",
	"csv":   "text/csv",
	"doc":   "application/msword",
	"gif":   "image/gif",
	"gz":    "application/gzip",
	"htm":   "text/html",
	"html":  "text/html",
	"ico":   "image/x-icon",
	"jar":   "application/java-archive",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpeg",
	"js":    "application/javascript",
	"json":  "application/json",
	"m4a":   "audio/x-m4a",
	"md":    "text/markdown",
	"mjs":   "application/javascript",
	"mov":   "video/quicktime",
	"mp3":   "audio/mpeg",
	"mp4":   "video/mp4",
	"mpeg":  "video/mpeg",
	"mpg":   "video/mpeg",
	"pdf":   "application/pdf",
	"png":   "image/png",
	"ps":    "application/postscript",
	"rar":   "application/x-rar-compressed",
	"rss":   "application/rss+xml",
	"rtf":   "application/rtf",
	"svg":   "image/svg+xml",
	"tar":   "application/x-tar",
	"txt":   "text/plain",
	"wasm":  "application/wasm",
	"webm":  "video/webm",
	"webp":  "image/webp",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"xml":   "text/xml",
	"zip":   "application/zip",
}

// mimeType guesses a content type from the file name's extension.
func mimeType(name string) string {
	p := strings.LastIndexByte(name, '.')
	if p < 0 {
		return defaultMimeType
	}
	if t, ok := mimeTypes[strings.ToLower(name[p+1:])]; ok {
		return t
	}
	return defaultMimeType
}
