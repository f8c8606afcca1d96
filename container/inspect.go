package container

import (
	"fmt"
	"reflect"
)

// ── Signature inspection ──────────────────────────────────────────────────────

// Arg describes one injectable slot of a target: a function parameter or a
// struct field.
type Arg struct {
	// Name is the struct field name. Function parameters have no names at
	// runtime and leave it empty.
	Name string

	// Index is the parameter position or field index.
	Index int

	Type reflect.Type

	// Tag carries the raw `inject` struct tag, when present.
	Tag    string
	HasTag bool

	// Variadic marks the trailing ...T parameter of a function.
	Variadic bool

	// CanSet is false for unexported struct fields.
	CanSet bool
}

// Arguments is the ordered description of a target's injectable slots,
// produced once per target and consumed by the plan builder.
type Arguments struct {
	Target reflect.Type
	Args   []Arg
}

// SignatureInspector walks a target and describes its injectable slots. The
// target is either a function value or the reflect.Type of a struct.
// Inspection runs once per target when its plan is first built, never per
// call; swap the inspector with WithInspector to instrument or replace it.
type SignatureInspector interface {
	Inspect(target any) (Arguments, error)
}

// DefaultInspector is the reflection-based inspector used by New.
var DefaultInspector SignatureInspector = reflectInspector{}

type reflectInspector struct{}

func (reflectInspector) Inspect(target any) (Arguments, error) {
	if t, ok := target.(reflect.Type); ok {
		if t.Kind() != reflect.Struct {
			return Arguments{}, fmt.Errorf("container: cannot inspect %s", t)
		}
		return inspectStruct(t), nil
	}

	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return Arguments{}, ErrNotFunc
	}
	return inspectFunc(v.Type()), nil
}

func inspectFunc(t reflect.Type) Arguments {
	args := make([]Arg, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		args[i] = Arg{
			Index:    i,
			Type:     t.In(i),
			Variadic: t.IsVariadic() && i == t.NumIn()-1,
			CanSet:   true,
		}
	}
	return Arguments{Target: t, Args: args}
}

func inspectStruct(t reflect.Type) Arguments {
	args := make([]Arg, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, hasTag := f.Tag.Lookup("inject")
		args[i] = Arg{
			Name:   f.Name,
			Index:  i,
			Type:   f.Type,
			Tag:    tag,
			HasTag: hasTag,
			CanSet: f.PkgPath == "",
		}
	}
	return Arguments{Target: t, Args: args}
}
