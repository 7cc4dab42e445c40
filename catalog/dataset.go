package catalog

import (
	"fmt"
	"path"
	"reflect"
)

// A CreateFunc computes a dataset's value from its parents' materialized
// values. Its concrete type must be a function accepting exactly
// len(Parents) arguments — one per parent, in order — and returning either
// a single value or (value, error). Go has no variance-safe way to express "N arguments of
// varying types" without reflection, so arity and return shape are
// validated once, at declaration time, via reflection: a create function's
// arity must equal len(parents). Every invocation thereafter is a plain
// (validated) reflect.Value.Call.
type CreateFunc = any

// DatasetOptions configures [NewDataset].
type DatasetOptions struct {
	Path        Path
	Namespace   string // dotted namespace; first segment is dropped when deriving RelativePath
	Description string
	Parents     []ParentRef
	Create      CreateFunc

	// RelativePath, if empty, is derived from Namespace and the dataset's
	// name (the last segment of Path) plus FileExtension. It is never
	// inherited from a base declaration.
	RelativePath  string
	FileExtension string
	IsBinary      bool
	ReadKwargs    map[string]any
	WriteKwargs   map[string]any
}

// DatasetDecl is the immutable declaration of a single materializable
// artifact. Construct with [NewDataset]; do not build the
// struct directly, since required validation and path derivation happen in
// the constructor.
type DatasetDecl struct {
	Path          Path
	Namespace     string
	Description   string
	Parents       []ParentRef
	Create        CreateFunc
	RelativePath  string
	FileExtension string
	IsBinary      bool
	ReadKwargs    map[string]any
	WriteKwargs   map[string]any
}

// NewDataset validates opts and returns the declaration.
// Validation failures are reported as [ErrDeclaration].
func NewDataset(opts DatasetOptions) (DatasetDecl, error) {
	if opts.Path == "" {
		return DatasetDecl{}, declErrorf(opts.Path, "dataset declared with empty catalog path")
	}
	if err := checkCreateArity(opts.Create, len(opts.Parents)); err != nil {
		return DatasetDecl{}, declErrorf(opts.Path, "%v", err)
	}

	relPath := opts.RelativePath
	if relPath == "" {
		ext := opts.FileExtension
		if ext == "" {
			ext = "dat"
		}
		name := string(opts.Path)
		if i := lastDot(name); i >= 0 {
			name = name[i+1:]
		}
		relPath = path.Join(namespacePath(opts.Namespace), fmt.Sprintf("%s.%s", name, ext))
	}

	return DatasetDecl{
		Path:          opts.Path,
		Namespace:     opts.Namespace,
		Description:   opts.Description,
		Parents:       opts.Parents,
		Create:        opts.Create,
		RelativePath:  relPath,
		FileExtension: opts.FileExtension,
		IsBinary:      opts.IsBinary,
		ReadKwargs:    opts.ReadKwargs,
		WriteKwargs:   opts.WriteKwargs,
	}, nil
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// IsSource reports whether d has no parents, in which case staleness
// reduces to "does the file exist?".
func (d DatasetDecl) IsSource() bool { return len(d.Parents) == 0 }

// Invoke calls d.Create with the supplied parent values, which must be in
// the same order as d.Parents and of the length validated at declaration
// time. It panics only if called with the wrong number of values, which
// indicates a bug in the caller (graph/scheduler), not a data error.
func (d DatasetDecl) Invoke(values []any) (any, error) {
	if len(values) != len(d.Parents) {
		panic(fmt.Sprintf("%s: Invoke called with %d values, want %d", d.Path, len(values), len(d.Parents)))
	}
	if len(d.Parents) == 0 && d.Create == nil {
		return nil, nil
	}
	fn := reflect.ValueOf(d.Create)
	args := make([]reflect.Value, len(values))
	for i, v := range values {
		if v == nil {
			args[i] = reflect.Zero(fn.Type().In(i))
		} else if want := fn.Type().In(i); !reflect.TypeOf(v).AssignableTo(want) {
			return nil, fmt.Errorf("argument %d: value of type %T is not assignable to %s", i, v, want)
		} else {
			args[i] = reflect.ValueOf(v)
		}
	}
	out := fn.Call(args)
	return unpackCreateResult(out)
}

func unpackCreateResult(out []reflect.Value) (any, error) {
	switch len(out) {
	case 1:
		return valueOrNil(out[0]), nil
	case 2:
		err, _ := out[1].Interface().(error)
		return valueOrNil(out[0]), err
	default:
		return nil, nil
	}
}

func valueOrNil(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// checkCreateArity validates that create is a function of exactly wantArgs
// parameters, returning one value or (value, error). A nil create is only
// valid when wantArgs is 0 (a source dataset with no computed value, e.g.
// a dataset that is only ever written out-of-band).
func checkCreateArity(create any, wantArgs int) error {
	if create == nil {
		if wantArgs != 0 {
			return fmt.Errorf("create is nil but parents has length %d", wantArgs)
		}
		return nil
	}
	t := reflect.TypeOf(create)
	if t.Kind() != reflect.Func {
		return fmt.Errorf("create must be a function, got %s", t)
	}
	if t.IsVariadic() {
		return fmt.Errorf("create must not be variadic")
	}
	if t.NumIn() != wantArgs {
		return fmt.Errorf("create has %d args while parents has length %d", t.NumIn(), wantArgs)
	}
	switch t.NumOut() {
	case 1:
		// create(...) any — never fails.
	case 2:
		if !t.Out(1).Implements(reflect.TypeOf((*error)(nil)).Elem()) {
			return fmt.Errorf("create's second return value must be error")
		}
	default:
		return fmt.Errorf("create must return (value) or (value, error), got %d results", t.NumOut())
	}
	return nil
}
