// Package auth implements caller identification and the authorization gate.
//
// Identification and authorization are separate middleware layers. Identify
// resolves a caller from the session cookie or an HS256 bearer token and
// attaches the user id to the request context; it never denies a request on
// its own (except for an explicitly presented invalid token).
// RequireGoodStanding is the gate: it denies anonymous callers, resolves the
// caller's account status through the store, checks it against the fixed
// allow-list (active, on_review), and on passage stamps author_seen across
// the caller's posts before the wrapped handler runs.
//
// Ordering within one request is strict: status resolution, then
// bookkeeping, then the wrapped handler. A store fault at either step is an
// internal failure and the handler is never invoked. Anonymous callers are
// always denied and never trigger bookkeeping.
package auth
