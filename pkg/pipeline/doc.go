// Package pipeline chains rulesets into a graph and runs files through it.
//
// A [Graph] holds validated [Ruleset] values. Root rulesets discover files
// from the command line, a directory scan or a directory watch; other
// rulesets consume the destinations produced by their upstream ruleset.
// An [Executor] builds each file's media context once, applies the first
// matching rule of every ruleset and reports an [Outcome] per file and
// ruleset.
package pipeline
