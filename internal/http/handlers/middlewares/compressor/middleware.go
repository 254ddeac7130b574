package compressor

import (
	"compress/gzip"
	"net/http"
	"strings"

	"shortlink/internal/http/httputils"
)

// MiddlewareCompressing распаковывает gzip-тела запросов и сжимает ответы,
// если клиент это принимает. Решение о сжатии ответа принимается по его
// Content-Type и статусу в момент записи заголовков.
func MiddlewareCompressing() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.Header.Get(httputils.HeaderContentEncoding), httputils.EncodingGzip) {
				gz, err := gzip.NewReader(r.Body)
				if err != nil {
					httputils.WriteTextError(w, http.StatusBadRequest, "invalid gzip data")
					return
				}
				defer gz.Close()
				r.Body = gz
				r.Header.Del(httputils.HeaderContentEncoding)
				r.Header.Del(httputils.HeaderContentLength)
				r.ContentLength = -1
			}

			if !acceptsGzip(r) {
				next.ServeHTTP(w, r)
				return
			}

			gw := &gzipResponseWriter{ResponseWriter: w}
			defer gw.Close()

			next.ServeHTTP(gw, r)
		})
	}
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get(httputils.HeaderAcceptEncoding), httputils.EncodingGzip)
}

func isCompressible(contentType string) bool {
	return strings.HasPrefix(contentType, httputils.MIMEApplicationJSON) ||
		strings.HasPrefix(contentType, httputils.MIMETextHTML) ||
		strings.HasPrefix(contentType, httputils.MIMETextPlain)
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	wroteHeader bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	if hasBody(status) && isCompressible(w.Header().Get(httputils.HeaderContentType)) {
		w.Header().Set(httputils.HeaderContentEncoding, httputils.EncodingGzip)
		w.Header().Del(httputils.HeaderContentLength)
		w.Header().Add(httputils.HeaderVary, httputils.HeaderAcceptEncoding)
		w.gz = gzip.NewWriter(w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.gz != nil {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *gzipResponseWriter) Close() error {
	if w.gz == nil {
		return nil
	}
	return w.gz.Close()
}

func hasBody(status int) bool {
	switch {
	case status < http.StatusOK,
		status == http.StatusNoContent,
		status == http.StatusNotModified,
		status >= http.StatusMultipleChoices && status < http.StatusBadRequest:
		return false
	}
	return true
}
