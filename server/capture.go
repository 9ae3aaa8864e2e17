package server

import "net/http"

// capturingResponseWriter remembers status code and size of the response
// so that they can be logged
type capturingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
}

func (w *capturingResponseWriter) WriteHeader(statusCode int) {
	if w.statusCode == 0 {
		w.statusCode = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *capturingResponseWriter) Write(d []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(d)
	w.size += int64(n)
	return n, err
}

func (w *capturingResponseWriter) code() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}
