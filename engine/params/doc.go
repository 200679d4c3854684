// Package params groups AutoParams into collections that tick only what
// needs ticking. Each collection keeps two bitsets, one bit per parameter:
// "automated" (the parameter has nodes) and "interpolating" (its increment
// is nonzero). Every sweep walks the set bits, never the whole collection,
// so the cost of a render pass does not grow with the number of parameters
// a preset type supports.
package params
