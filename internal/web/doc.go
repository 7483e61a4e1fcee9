// Package web wires the blog's HTTP endpoints to the store through the
// authorization gate. Handlers are thin: parameter extraction, one or two
// store calls, and an envelope response. All protected routes sit behind
// auth.RequireGoodStanding; identification (cookie session or bearer token)
// is applied once around the whole mux by Router.
package web
