// Package store provides persistent storage for inkwell using SQLite.
//
// The package is interface-driven: UserStore, PostStore and SessionStore
// describe the operations the HTTP layer and the authorization gate depend
// on, and SQLiteStore implements all of them in a single struct.
//
// Every statement runs through a small executor whose templates are a
// distinct string type declared as constants. Caller-derived values (post
// ids from paths, form fields, session ids) are always passed as positional
// binds, never formatted into the template text; the type split makes the
// unsafe form a compile-visible conversion rather than an easy default.
//
// Failure taxonomy: ErrNotFound for an absent row, ErrSessionNotFound for
// an unknown or expired session, ErrConstraint for uniqueness/foreign-key
// violations, and *QueryError for malformed statements or driver faults.
package store
