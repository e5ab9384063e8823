// Package history imports location history and answers "where was I at
// this instant" queries used as a fallback when media carries no GPS data.
package history
