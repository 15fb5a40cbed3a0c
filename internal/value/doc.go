// Package value provides the tagged union of operand types carried by
// filter field predicates.
//
// This package imports nothing internal. Every other package that touches
// operands (filter, condition, querysql, eval) goes through these types
// instead of untyped interface{} values, so each coercion branch of the
// value grammar is checked by a type switch.
package value
