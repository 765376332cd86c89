package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ErrInvalidArgs is returned when attributes do not fit an argument struct.
var ErrInvalidArgs = errors.New("invalid arguments")

type argField struct {
	index    int
	required bool
}

// argFields reads the `arg:"name[,required]"` tags of a struct type.
func argFields(t reflect.Type) map[string]argField {
	fields := make(map[string]argField)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("arg")
		parts := strings.Split(tag, ",")
		name := parts[0]
		if name == "" || name == "-" {
			continue
		}
		fields[name] = argField{index: i, required: len(parts) > 1 && parts[1] == "required"}
	}
	return fields
}

// DecodeArgs converts attribute values into the tagged fields of the struct
// target points to. Fields without a matching attribute keep their value.
func DecodeArgs(args map[string]cty.Value, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a pointer to a struct, got %T", ErrInvalidArgs, target)
	}
	sv := rv.Elem()
	fields := argFields(sv.Type())

	var errs []string
	for name := range args {
		if _, ok := fields[name]; !ok {
			errs = append(errs, fmt.Sprintf("unsupported argument %q", name))
		}
	}
	for name, f := range fields {
		v, ok := args[name]
		if !ok || v.IsNull() {
			if f.required {
				errs = append(errs, fmt.Sprintf("missing required argument %q", name))
			}
			continue
		}
		if !v.IsWhollyKnown() {
			errs = append(errs, fmt.Sprintf("argument %q has an unknown value", name))
			continue
		}
		field := sv.Field(f.index)
		ty, err := gocty.ImpliedType(field.Interface())
		if err != nil {
			errs = append(errs, fmt.Sprintf("argument %q: %s", name, err))
			continue
		}
		conv, err := convert.Convert(v, ty)
		if err != nil {
			errs = append(errs, fmt.Sprintf("argument %q: %s", name, err))
			continue
		}
		if err := gocty.FromCtyValue(conv, field.Addr().Interface()); err != nil {
			errs = append(errs, fmt.Sprintf("argument %q: %s", name, err))
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("%w: %s", ErrInvalidArgs, strings.Join(errs, "; "))
	}
	return nil
}
