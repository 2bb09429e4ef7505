// compression.go - gzip compression of responses.
package server

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// compressionMinSize leaves small responses such as "File(s) Saved" alone.
const compressionMinSize = 1024

// compressionMiddleware gzips responses for clients that accept it.
func compressionMiddleware(next http.Handler) http.Handler {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(compressionMinSize))
	if err != nil {
		return gzhttp.GzipHandler(next)
	}
	return wrap(next)
}
