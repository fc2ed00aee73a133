package main

import (
	"fmt"
	"html"
	"path"
	"strconv"
	"strings"
	"time"
)

const listingTimeFormat = "2006-01-02 15:04:05"

// listingEntry is one row of a directory snapshot.
type listingEntry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

const listingHead = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Index of %[1]s</title>
  <style>
    body { font-family: Arial, sans-serif; padding: 20px; }
    h1 { border-bottom: 1px solid #ccc; }
    table { width: 100%%; border-collapse: collapse; }
    th, td { text-align: left; padding: 8px; border-bottom: 1px solid #eee; }
    tr:hover { background-color: #f9f9f9; }
    a { text-decoration: none; color: #007bff; }
    a:hover { text-decoration: underline; }
  </style>
</head>
<body>
  <h1>Index of %[1]s</h1>
  <table>
    <tr><th>Name</th><th>Size</th><th>Last Modified</th></tr>
`

// renderListing renders the HTML index page of a directory reached through
// requestPath. It has no side effects.
func renderListing(requestPath string, entries []listingEntry) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, listingHead, html.EscapeString(requestPath))

	if requestPath != "/" {
		parent := path.Dir(strings.TrimSuffix(requestPath, "/"))
		if parent == "." || parent == "" {
			parent = "/"
		}
		fmt.Fprintf(&b, "    <tr><td><a href=\"%s\">../</a></td><td></td><td></td></tr>\n",
			html.EscapeString(parent))
	}

	for _, e := range entries {
		href := requestPath
		if !strings.HasSuffix(href, "/") {
			href += "/"
		}
		href += e.Name
		display := e.Name
		size := "-"
		if e.IsDir {
			display += "/"
		} else {
			size = humanReadableSize(e.Size)
		}
		fmt.Fprintf(&b, "    <tr><td><a href=\"%s\">%s</a></td><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(href), html.EscapeString(display), size,
			e.ModTime.UTC().Format(listingTimeFormat))
	}

	b.WriteString("  </table>\n</body>\n</html>\n")
	return []byte(b.String())
}

// humanReadableSize renders n bytes with binary units: 512 B, 1.5 KB, 3.0 MB.
func humanReadableSize(n int64) string {
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}
	const units = "KMGTPE"
	v := float64(n)
	exp := -1
	for v >= 1024 && exp < len(units)-1 {
		v /= 1024
		exp++
	}
	return fmt.Sprintf("%.1f %cB", v, units[exp])
}
