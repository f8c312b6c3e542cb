package middleware

import (
	"net/http"
	"strings"
)

// CORS allows credentialed requests with any method and header from the
// configured origins. "*" reflects the caller's origin, since browsers reject
// a literal wildcard when credentials are allowed.
func CORS(allowOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowOrigins) == 0 || (len(allowOrigins) == 1 && allowOrigins[0] == "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := writeCORSHeaders(w, r, origin, allowOrigins, allowAll)

			// Handle preflight
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeCORSHeaders(w http.ResponseWriter, r *http.Request, origin string, allowOrigins []string, allowAll bool) bool {
	if origin == "" {
		return false
	}
	if !allowAll && !originAllowed(origin, allowOrigins) {
		return false
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Expose-Headers", HeaderCorrelationID)

	if r.Method == http.MethodOptions {
		methods := r.Header.Get("Access-Control-Request-Method")
		if methods == "" {
			methods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
		}
		h.Set("Access-Control-Allow-Methods", methods)

		if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			h.Set("Access-Control-Allow-Headers", reqHeaders)
		} else {
			h.Set("Access-Control-Allow-Headers", "*")
		}
		h.Set("Access-Control-Max-Age", "600")
	}
	return true
}

func originAllowed(origin string, allow []string) bool {
	for _, a := range allow {
		a = strings.TrimSpace(a)
		if a == "*" || strings.EqualFold(a, strings.TrimSpace(origin)) {
			return true
		}
	}
	return false
}
