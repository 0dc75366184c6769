package httpmiddleware

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// Compress encodes responses with brotli or gzip, whichever the client
// prefers. Responses that are already encoded or carry no body pass through.
func Compress() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || !acceptsCompression(r) {
				next.ServeHTTP(w, r)
				return
			}
			cw := &compressWriter{ResponseWriter: w, r: r}
			defer func() { _ = cw.Close() }()
			next.ServeHTTP(cw, r)
		})
	}
}

func acceptsCompression(r *http.Request) bool {
	ae := r.Header.Get("Accept-Encoding")
	return strings.Contains(ae, "br") || strings.Contains(ae, "gzip") || strings.Contains(ae, "*")
}

type compressWriter struct {
	http.ResponseWriter
	r           *http.Request
	enc         io.WriteCloser
	wroteHeader bool
}

func (w *compressWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.Header()
	if code >= http.StatusOK && code != http.StatusNoContent && code != http.StatusNotModified &&
		h.Get("Content-Encoding") == "" {
		h.Add("Vary", "Accept-Encoding")
		w.enc = brotli.HTTPCompressor(w.ResponseWriter, w.r)
		if h.Get("Content-Encoding") != "" {
			h.Del("Content-Length")
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *compressWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.enc == nil {
		return w.ResponseWriter.Write(p)
	}
	return w.enc.Write(p)
}

func (w *compressWriter) Close() error {
	if w.enc == nil {
		return nil
	}
	return w.enc.Close()
}

func (w *compressWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
