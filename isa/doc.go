// Package isa defines the narrow capability interface the lifter uses to
// query a generic instruction type I without knowing its concrete shape:
// offset, stack push/pop counts, and the variables an instruction reads and
// writes. An adapter over this interface composes with the lifter rather
// than extending any concrete instruction type.
package isa
