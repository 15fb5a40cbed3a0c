// Package condition defines the abstract condition tree produced by the
// filter parser and consumed by backend interpreters.
//
// Only two node shapes exist: Field (a leaf predicate) and Compound (an
// AND/OR of children). Interpreters such as querysql and eval switch
// exhaustively on these types and on the Operator of each Field.
package condition
