package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
)

// debugUsername и debugPassword защищают debug endpoints.
// Загружаются из DEBUG_USERNAME и DEBUG_PASSWORD.
var (
	debugUsername = os.Getenv("DEBUG_USERNAME")
	debugPassword = os.Getenv("DEBUG_PASSWORD")
)

// DebugAuth защищает debug/pprof endpoints HTTP Basic аутентификацией
//
// Если credentials не настроены, доступ разрешен только в development
// (ENV=development или пустой). Сравнение constant-time - timing attack
// на пароль не работает.
//
// Использование:
//
//	debug := router.PathPrefix("/debug").Subrouter()
//	debug.Use(middleware.DebugAuth)
func DebugAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if debugUsername == "" || debugPassword == "" {
			if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD.", http.StatusForbidden)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(debugPassword)) == 1

		if !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
