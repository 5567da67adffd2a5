// Package ir provides the canonical encoding used for mixer traces.
//
// Frame digests must be byte-identical across runs, so everything that is
// hashed goes through MarshalCanonical (RFC 8785 key order, NFC strings, no
// HTML escaping). Floats are not representable in canonical form; callers
// render them with Float, which produces the shortest decimal string that
// round-trips to the same float64.
//
// ir imports nothing internal.
package ir
