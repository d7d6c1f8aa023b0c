package httpserver

import "net/http"

// Routes aggregates handlers for HTTP server.
type Routes struct {
	Signup  http.HandlerFunc
	Signin  http.HandlerFunc
	Refresh http.HandlerFunc
	Health  http.HandlerFunc
}

// NewRouter wires all HTTP routes. A non-nil limiter throttles signin.
func NewRouter(routes Routes, limiter *RateLimiter) http.Handler {
	mux := http.NewServeMux()
	if routes.Signup != nil {
		mux.Handle("/auth/signup", method(http.MethodPost, routes.Signup))
	}
	if routes.Signin != nil {
		signin := routes.Signin
		if limiter != nil {
			signin = limiter.Wrap(signin)
		}
		mux.Handle("/auth/signin", method(http.MethodPost, signin))
	}
	if routes.Refresh != nil {
		mux.Handle("/auth/refresh", method(http.MethodPost, routes.Refresh))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
