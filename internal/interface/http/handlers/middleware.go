package handlers

import "net/http"

// Middleware decorates a handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies mws to h. The first middleware sees the request first.
func Wrap(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

var secureHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
}

// SecureHeaders sets the headers a JSON-only API needs.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, kv := range secureHeaders {
			w.Header().Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}

// CacheControl lets clients keep GET responses only if they revalidate them
// through the ETag. Nothing else is stored.
func CacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		policy := "no-store"
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			policy = "no-cache"
		}
		w.Header().Set("Cache-Control", policy)
		next.ServeHTTP(w, r)
	})
}

// RejectFunc writes an error response outside any handler.
type RejectFunc func(w http.ResponseWriter, status int, code, message string)

// LimitBody refuses bodies that declare more than maxBytes and caps the rest
// while they are read.
func LimitBody(maxBytes int64, reject RejectFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				reject(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
