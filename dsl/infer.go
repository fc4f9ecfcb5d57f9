package dsl

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/godm-io/godm"
)

// Infer builds a schema from a struct type using `godm` tags. The tag's
// first element names the field; the rest are flags:
//
//	type User struct {
//		Name  string    `godm:"name,required"`
//		Age   int       `godm:"age"`
//		Home  Address   `godm:"home"`
//		Tags  []string  `godm:"tags"`
//		Extra string    `godm:"-"`
//	}
//
// Recognized flags: required, alias=<store key>. An empty name falls back
// to the lowercased Go field name; "-" skips the field. Nested structs
// become embedded schemas, slices become typed arrays, map[string]any a
// dict, []any a list. Pointer fields infer as their element type.
func Infer[T any](name string, opts ...godm.SchemaOption) (*godm.Schema, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	defs, err := structDefs(t)
	if err != nil {
		return nil, err
	}
	return godm.NewSchema(name, defs, opts...)
}

// MustInfer is Infer that panics on error.
func MustInfer[T any](name string, opts ...godm.SchemaOption) *godm.Schema {
	s, err := Infer[T](name, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func structDefs(t reflect.Type) ([]godm.FieldDef, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("dsl: cannot infer a schema from %s", t)
	}
	var defs []godm.FieldDef
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		def := godm.FieldDef{Name: strings.ToLower(field.Name)}
		if tag, ok := field.Tag.Lookup("godm"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				def.Name = parts[0]
			}
			for _, flag := range parts[1:] {
				switch {
				case flag == "required":
					def.Required = true
				case strings.HasPrefix(flag, "alias="):
					def.Key = strings.TrimPrefix(flag, "alias=")
				case flag == "":
				default:
					return nil, fmt.Errorf("dsl: unknown tag flag %q on %s.%s", flag, t.Name(), field.Name)
				}
			}
		}
		if err := fillKind(&def, field.Type); err != nil {
			return nil, fmt.Errorf("dsl: %s.%s: %w", t.Name(), field.Name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	anyType  = reflect.TypeOf((*any)(nil)).Elem()
)

func fillKind(def *godm.FieldDef, t reflect.Type) error {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		def.Kind = godm.KindDateTime
		return nil
	case t == uuidType:
		def.Kind = godm.KindID
		return nil
	case t == anyType:
		def.Kind = godm.KindAny
		return nil
	}
	switch t.Kind() {
	case reflect.String:
		def.Kind = godm.KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		def.Kind = godm.KindInt
	case reflect.Float32, reflect.Float64:
		def.Kind = godm.KindFloat
	case reflect.Bool:
		def.Kind = godm.KindBool
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return fmt.Errorf("map key must be string, got %s", t.Key())
		}
		def.Kind = godm.KindDict
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			def.Kind = godm.KindBytes
			return nil
		}
		if t.Elem() == anyType {
			def.Kind = godm.KindList
			return nil
		}
		elem := godm.FieldDef{}
		if err := fillKind(&elem, t.Elem()); err != nil {
			return err
		}
		def.Kind = godm.KindArray
		def.Elem = &elem
	case reflect.Struct:
		nested, err := structDefs(t)
		if err != nil {
			return err
		}
		ns, err := godm.NewSchema(t.Name(), nested)
		if err != nil {
			return err
		}
		def.Kind = godm.KindEmbedded
		def.Schema = ns
	default:
		return fmt.Errorf("unsupported type %s", t)
	}
	return nil
}
