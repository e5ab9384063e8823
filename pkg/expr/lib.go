package expr

import (
	"errors"
	"math"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"
)

var errOpRange = errors.New("value is not a filesystem operation")

// lib declares the fs.* operation constants, the has() macro over event
// masks, and the path helpers available to watch filters.
type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),

		opConstant("CREATE", fsnotify.Create),
		opConstant("REMOVE", fsnotify.Remove),
		opConstant("WRITE", fsnotify.Write),
		opConstant("RENAME", fsnotify.Rename),
		opConstant("CHMOD", fsnotify.Chmod),

		// fs.event.has(fs.CREATE) or fs.event.has(fs.CREATE, fs.WRITE),
		// the latter true when any of the operations is set.
		cel.Macros(cel.ReceiverVarArgMacro("has", hasMacro)),
		cel.Function("@has",
			cel.Overload("@has_int_int", []*cel.Type{cel.IntType, cel.IntType}, cel.BoolType,
				cel.BinaryBinding(hasOp),
			),
			cel.Overload("@has_int_list_int", []*cel.Type{cel.IntType, cel.ListType(cel.IntType)}, cel.BoolType,
				cel.BinaryBinding(hasAnyOp),
			),
		),

		pathFunc("pathBase", filepath.Base),
		pathFunc("pathDir", filepath.Dir),
		pathFunc("pathExt", func(p string) string { return strings.ToLower(filepath.Ext(p)) }),

		// pathMatch("**/DCIM/**/*.{jpg,JPG}", file).
		cel.Function("pathMatch",
			cel.Overload("path_match", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(pattern, path ref.Val) ref.Val {
					pat, ok := pattern.Value().(string)
					if !ok {
						return types.NewErr("pathMatch: invalid pattern")
					}

					p, ok := path.Value().(string)
					if !ok {
						return types.NewErr("pathMatch: invalid path")
					}

					matched, err := doublestar.Match(pat, filepath.ToSlash(p))
					if err != nil {
						return types.NewErr("pathMatch: %s", err)
					}

					return types.Bool(matched)
				}),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return nil
}

func opConstant(name string, op fsnotify.Op) cel.EnvOption {
	return cel.Constant("fs."+name, types.IntType, types.Int(op))
}

// pathFunc declares a string -> string function over file paths.
func pathFunc(name string, fn func(string) string) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(strings.ToLower(name), []*cel.Type{cel.StringType}, cel.StringType,
			cel.UnaryBinding(func(path ref.Val) ref.Val {
				p, ok := path.Value().(string)
				if !ok {
					return types.NewErr("%s: invalid string value", name)
				}

				return types.String(fn(p))
			}),
		),
	)
}

func toOp(v ref.Val) (fsnotify.Op, error) {
	i, ok := v.Value().(int64)
	if !ok || i < 0 || i > math.MaxUint32 {
		return 0, errOpRange
	}

	return fsnotify.Op(i), nil
}

func hasOp(event, flag ref.Val) ref.Val {
	ev, err := toOp(event)
	if err != nil {
		return types.NewErr("has: event: %s", err)
	}

	op, err := toOp(flag)
	if err != nil {
		return types.NewErr("has: flag: %s", err)
	}

	return types.Bool(ev.Has(op))
}

func hasAnyOp(event, flags ref.Val) ref.Val {
	ev, err := toOp(event)
	if err != nil {
		return types.NewErr("has: event: %s", err)
	}

	list, ok := flags.(traits.Lister)
	if !ok {
		return types.NewErr("has: invalid flags list")
	}

	it := list.Iterator()
	for it.HasNext() == types.True {
		op, err := toOp(it.Next())
		if err != nil {
			return types.NewErr("has: flag: %s", err)
		}

		if ev&op != 0 {
			return types.True
		}
	}

	return types.False
}

//nolint:ireturn // Following CEL's function signature.
func hasMacro(meh cel.MacroExprFactory, target ast.Expr, args []ast.Expr) (ast.Expr, *cel.Error) {
	switch len(args) {
	case 0:
		return nil, meh.NewError(target.ID(), "has() requires at least one argument")
	case 1:
		return meh.NewCall("@has", target, args[0]), nil
	default:
		return meh.NewCall("@has", target, meh.NewList(args...)), nil
	}
}
