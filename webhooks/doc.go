// Package webhooks verifies identity provider deliveries and turns each one
// into a single community store mutation.
//
// Pipeline: verify (Svix signature) -> parse (closed Event set) ->
// validate (required fields) -> mutate (exactly one store call).
// Deliveries are not deduplicated; the store contract makes replays and
// out-of-order events safe.
package webhooks
