package controller

import (
	"path/filepath"
	"strings"
)

// contentTypes is the small extension table used by Static. Anything not
// listed is served as text/plain.
var contentTypes = map[string]string{
	"js":   "text/javascript",
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"gif":  "image/gif",
	"png":  "image/png",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mpeg": "video/mpeg",
	"mpg":  "video/mpeg",
	"json": "application/json",
}

// textTypes get a charset parameter.
var textTypes = map[string]bool{
	"text/javascript":  true,
	"text/html":        true,
	"text/css":         true,
	"text/plain":       true,
	"application/json": true,
}

// ContentTypeFor maps a file name onto a Content-Type value.
func ContentTypeFor(name, charset string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	ct, ok := contentTypes[ext]
	if !ok {
		ct = "text/plain"
	}
	if textTypes[ct] && charset != "" {
		return ct + "; charset=" + charset
	}
	return ct
}
