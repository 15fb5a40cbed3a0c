// Package schema declares which field paths of an entity may be filtered
// on, which predicates apply by default, how external names map onto
// canonical fields, and how relations resolve to other entities.
package schema
