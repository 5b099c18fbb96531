package configparser

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

var ErrNotStructPointer = errors.New("config must be a pointer to a struct")

// LoadAndParseYaml exports the yaml file into the environment and fills dst
// from it. A missing file is not an error, the environment and the defaults
// are used then.
func LoadAndParseYaml(filepath string, dst any) error {
	if err := LoadYamlFile(filepath); err != nil && !errors.Is(err, ErrNoFilePath) && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return ParseEnv(dst)
}

// ParseEnv fills the fields of dst tagged with `env:"NAME"` from the
// environment, falling back to the `default:"..."` tag. Nested structs are
// walked recursively.
func ParseEnv(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}

	v := viper.New()
	v.AutomaticEnv()
	v.AllowEmptyEnv(false)

	return parseStruct(v, rv.Elem())
}

var durationType = reflect.TypeOf(time.Duration(0))

func parseStruct(v *viper.Viper, rv reflect.Value) error {
	rt := rv.Type()
	for i := range rt.NumField() {
		field := rt.Field(i)
		fv := rv.Field(i)
		if !field.IsExported() {
			continue
		}

		key, ok := field.Tag.Lookup("env")
		if !ok {
			if fv.Kind() == reflect.Struct {
				if err := parseStruct(v, fv); err != nil {
					return err
				}
			}
			continue
		}

		if def, ok := field.Tag.Lookup("default"); ok {
			v.SetDefault(key, def)
		}
		if v.GetString(key) == "" {
			continue
		}

		if err := setField(v, key, fv); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func setField(v *viper.Viper, key string, fv reflect.Value) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(v.GetString(key))
	case reflect.Bool:
		fv.SetBool(v.GetBool(key))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := v.GetInt64(key)
		if fv.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, fv.Type())
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fv.SetUint(v.GetUint64(key))
	case reflect.Float32, reflect.Float64:
		fv.SetFloat(v.GetFloat64(key))
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}
