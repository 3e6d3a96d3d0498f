// Package auth provides authentication middleware for qcsim-server.
//
// APIKeyMiddleware(mode, header, key, next) validates the API key carried in
// the named HTTP header. When mode != "apikey" or key == "", all requests pass
// through (useful for local development with auth disabled). When the key is
// incorrect or absent the middleware answers 401 immediately.
package auth
