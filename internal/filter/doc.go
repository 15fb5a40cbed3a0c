// Package filter parses flat filter input into a condition tree.
//
// Input keys follow the key grammar
//
//	[<relation>.]...[<group>:]<field>
//
// and values follow the textual value grammar described on ParseValue.
// The group digits encode OR nesting: predicates sharing a group are
// AND-ed, and each digit appended to a group opens one branch of an OR at
// that depth. For example
//
//	filter[0:id]=1 & filter[00:name]=foo & filter[01:name]=bar & filter[1:id]=15
//
// decodes to
//
//	or(and(eq(id, 1), or(eq(name, foo), eq(name, bar))), eq(id, 15))
//
// Parser validates every key against a schema.Schema and recurses into
// related schemas through a schema.Registry. Errors are surfaced or
// skipped per schema (see schema.WithStrict). Flatten and Encode perform
// the inverse mapping from a condition tree to flat input.
package filter
