// Package edgecache implements the request-scoped cache-through facade that
// sits between the HTTP entry point and the asset resolvers. It owns the
// neutral Request/Response model, ETag normalization, cache-option
// resolution, and the Store abstraction with Redis and in-process backends.
// Responses returned by a Store are treated as read-only: the facade always
// reconstructs a fresh Response before adjusting status or headers, and cache
// writes are handed to a background Deferrer so they never block the reply.
package edgecache
