package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the browser front end on the given origins to call the API.
// With no origins configured every origin is allowed without credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
