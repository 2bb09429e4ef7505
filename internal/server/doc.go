// Package server implements the filestore HTTP API. It wires the routes,
// the middleware chain (request id, logging, rate limiting, compression)
// and the optional side effects of store mutations: a Postgres audit trail
// and a MinIO object mirror.
package server
