// Package middleware holds the HTTP middleware of the ops server.
package middleware

import "net/http"

// Middleware is a function that wraps an http.Handler. It matches chi's Use signature.
type Middleware = func(http.Handler) http.Handler
