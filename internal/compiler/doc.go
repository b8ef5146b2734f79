// Package compiler turns backend-agnostic filters into backend query syntax.
//
// Every compiler is pure and emits clauses in filter insertion order, so
// identical input always yields identical output.
package compiler
