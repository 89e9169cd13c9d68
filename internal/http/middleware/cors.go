package middleware

import (
	"net/http"
	"strings"
)

// CORS echoes allowlisted origins. "*" allows any origin; "https://*.example.com" allows
// any subdomain of example.com over https.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAny := false
	allow := map[string]struct{}{}
	var suffixes []originSuffix
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "":
		case origin == "*":
			allowAny = true
		case strings.Contains(origin, "://*."):
			scheme, host, _ := strings.Cut(origin, "://*")
			suffixes = append(suffixes, originSuffix{scheme: scheme + "://", host: host})
		default:
			allow[origin] = struct{}{}
		}
	}

	allowedHeaders := "Authorization, Content-Type, X-Request-ID"
	allowedMethods := "GET, POST, PUT, PATCH, DELETE, OPTIONS"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" && (allowAny || isAllowedOrigin(allow, suffixes, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
				w.Header().Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type originSuffix struct {
	scheme string
	host   string // ".example.com"
}

func isAllowedOrigin(allow map[string]struct{}, suffixes []originSuffix, origin string) bool {
	if _, ok := allow[origin]; ok {
		return true
	}
	for _, s := range suffixes {
		rest, ok := strings.CutPrefix(origin, s.scheme)
		if ok && strings.HasSuffix(rest, s.host) && len(rest) > len(s.host) {
			return true
		}
	}
	return false
}
