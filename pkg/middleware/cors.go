package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS restricts the control API to the configured origins. The surface
// only uses GET, POST and PUT; Authorization is allowed so browser tooling
// can forward the agent token.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return c.Handler
}
