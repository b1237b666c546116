package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/michaellevy/lift-tracker/internal/auth"

	log "github.com/sirupsen/logrus"
)

// paths reachable without a session token
var openPaths = map[string]bool{
	"/":        true,
	"/version": true,
	"/a/login": true,
}

func AuthMiddleware(loginChecker auth.Checker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if openPaths[r.URL.Path] || strings.HasPrefix(r.URL.Path, "/metrics") {
				next.ServeHTTP(w, r)
				return
			}

			authToken := r.Header.Get("X-LIFTS-TOKEN")
			if authToken == "" {
				log.Tracef("[missing token] [auth middleware] %s => %s", r.Method, r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				return
			}

			userID, err := loginChecker.LoggedUserID(r.Context(), authToken)
			if err != nil {
				if !errors.Is(err, auth.ErrNotLoggedIn) {
					log.Errorf("[auth middleware] check logged in: %s", err)
				}
				log.Tracef("[invalid token] [auth middleware] %s => %s", r.Method, r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				return
			}

			r = r.WithContext(auth.ContextWithUserID(r.Context(), userID))
			next.ServeHTTP(w, r)
		})
	}
}
