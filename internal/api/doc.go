// Package api serves docent over HTTP using a chi router.
//
// Public routes analyze a photo, resolve a caller-supplied guess, list the
// registry, and report health. Registry writes (upsert and delete) are guarded
// by an optional bearer token. Every request is tagged with an X-Request-ID
// that doubles as the log correlation id, and answered with permissive CORS
// headers so browser kiosks on other origins can call it.
package api
