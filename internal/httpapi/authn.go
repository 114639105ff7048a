package httpapi

import (
	"net/http"
	"strings"

	"vidmark.org/internal/auth"
)

// publicPaths are reachable without an access token: the auth endpoints
// themselves, operational probes, the spec, stored recordings and the
// dashboard event feed (EventSource cannot set an Authorization header).
var publicPaths = map[string]bool{
	"/registration":  true,
	"/login":         true,
	"/refresh_token": true,
	"/logout":        true,
	"/healthz":       true,
	"/readyz":        true,
	"/v1/info":       true,
	"/openapi.yaml":  true,
	"/metrics":       true,
	"/events":        true,
	"/":              true,
}

func isPublic(path string) bool {
	if publicPaths[path] {
		return true
	}
	return strings.HasPrefix(path, "/uploads/")
}

// withAuth requires a valid bearer access token on everything that is not
// public and puts the token payload into the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			writeError(w, r, http.StatusUnauthorized, "authorization required")
			return
		}

		payload, err := a.auth.Tokens().VerifyAccess(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := auth.ContextWithPayload(r.Context(), payload)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
