// Package server hosts the Fiber HTTP service, request middleware chain, and
// the asset handler glue that routes every GET/HEAD request through the
// active resolver. It owns the JSON error envelopes (404/405/500), the
// request-ID middleware, and the conversion between Fiber's request types and
// the cache layer's neutral request/response model. Diagnostics surfaces live
// under /-/ and bypass asset resolution; keep exports narrow and accept
// explicit dependencies.
package server
