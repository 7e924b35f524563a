// Package canon provides the canonical JSON serialization and digest used
// wherever collaborative state or log content is compared or chained.
//
// Serialization follows RFC 8785 (JSON Canonicalization Scheme):
//   - Object keys sorted by UTF-16 code units
//   - No insignificant whitespace
//   - No HTML escaping
//   - Numbers in ECMAScript shortest form; NaN and ±Inf become null
//   - Strings NFC normalized at the serialization boundary
//
// Hash applies SHA-256 to the UTF-8 bytes of the canonical form and returns
// the lowercase hex digest. Two deeply-equal values always hash identically,
// regardless of map iteration order.
package canon
