// Package expr provides CEL (Common Expression Language) filters for
// filesystem watch events.
//
// Filters have access to variables:
//   - `file` (string): The absolute path of the event
//   - `fs.event` (int): The fsnotify operation bitmask
//
// and the constants `fs.CREATE`, `fs.WRITE`, `fs.RENAME`, `fs.REMOVE` and
// `fs.CHMOD`. The `has` macro tests operation flags, and the `pathBase`,
// `pathDir`, `pathExt` and `pathMatch` functions inspect the path.
package expr
