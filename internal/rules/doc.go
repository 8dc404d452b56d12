// Package rules implements the validator set run over extracted workflows.
//
// Rules are independent functions registered under a category
// (parameter, connection, cycle). Every rule sees the same IR and schema
// session; rules never suppress each other, and a rule that panics is
// isolated and reported as TOOL001 while the remaining rules still run.
package rules
