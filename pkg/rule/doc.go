// Package rule defines rules: a condition selecting files, a template
// rendering their destination, and the action moving them there.
package rule
