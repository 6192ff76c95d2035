// Package assets resolves URL paths against the build-time manifest and
// streams asset bytes out of a LevelDB-backed key-value namespace. It owns
// extension-based content-type inference (shared with the remote resolver)
// and adapts every lookup into a fallback producer for the edge cache facade.
// The manifest is loaded once at startup and never mutated afterwards.
package assets
