// Package action applies rule actions: the builtin move, copy, symlink and
// hardlink primitives, and user-defined commands.
//
// Command arguments are templates rendered against the media context plus
// the target namespace, which describes the destination:
//
//	actions:
//	  optimize: jpegoptim --dest={target.dir} {source.path}
//	  tag: [exiftool, "-Keywords+={space.city}", "{target.path}"]
//
// Commands run directly, without a shell, with MONANA_SOURCE and
// MONANA_TARGET set in their environment.
package action
