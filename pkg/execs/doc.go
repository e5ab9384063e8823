// Package execs runs external commands for custom actions and media probes.
//
// Commands only inherit a small set of essential environment variables
// from the caller, plus whatever the command declares.
package execs
