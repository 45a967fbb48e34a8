package clients

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
)

// Params is a query mapping. Nil values, empty strings and nil pointers are
// dropped. Slices repeat the key once per element; every other value appears
// exactly once.
type Params map[string]any

func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	values := url.Values{}
	for key, value := range p {
		if rv, ok := listValue(value); ok {
			for i := 0; i < rv.Len(); i++ {
				if text, ok := paramString(rv.Index(i).Interface()); ok {
					values.Add(key, text)
				}
			}
			continue
		}
		text, ok := paramString(value)
		if !ok {
			continue
		}
		values.Set(key, text)
	}
	return values.Encode()
}

// listValue reports slices and arrays other than byte strings.
func listValue(value any) (reflect.Value, bool) {
	if value == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv, rv.Type().Elem().Kind() != reflect.Uint8
	}
	return reflect.Value{}, false
}

func paramString(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), rv.String() != ""
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes()), rv.Len() > 0
		}
	}
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		text := s.String()
		return text, text != ""
	}
	return fmt.Sprint(rv.Interface()), true
}
