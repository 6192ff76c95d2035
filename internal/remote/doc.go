// Package remote resolves assets from a raw-content mirror of a source
// repository and serves them through the edge-cache facade.
//
// A Client owns the origin coordinates (origin host, repository, branch,
// optional bearer token) and a build hash used to namespace cache keys and
// ETag seeds so that a new build never revalidates against a previous
// build's entries. Get performs a plain origin fetch and reports absence
// (non-2xx) as nil; Fetch wraps Get in the cache facade with the
// "/__cached_git_assets__" key namespace.
package remote
