// Package middleware groups the Fiber middleware of the HTTP API.
//
//   - auth checks the X-API-Key header with a constant-time comparison. An empty key
//     leaves the API open.
//   - rayid assigns every request an id, reusing an incoming X-Ray-ID header, and
//     echoes it in the response.
//
// rayid is registered first on the app; auth is registered on the API group so that
// the swagger UI stays public.
package middleware
