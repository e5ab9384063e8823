// Package source discovers the files a ruleset processes: a fixed list,
// a one-shot directory scan, or a long-running directory watch.
//
// Paths are matched against include and exclude globs relative to the
// scanned directory, using doublestar syntax ("**/*.jpg", "DCIM/**").
// Hidden files and directories are skipped unless requested.
package source
