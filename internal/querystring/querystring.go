// Package querystring encodes option structs into URL query values. Fields
// are selected by their `url` tag; an `omitempty` option skips zero values so
// optional parameters never appear in the request.
package querystring

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Values encodes a struct, or a pointer to one, into url.Values.
func Values(v interface{}) (url.Values, error) {
	values := url.Values{}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("querystring: expected struct input, got %v", rv.Kind())
	}

	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		name, omitempty := parseTag(rt.Field(i).Tag.Get("url"))
		if name == "" {
			continue
		}

		field := rv.Field(i)
		if omitempty && field.IsZero() {
			continue
		}
		if err := encodeField(values, name, field); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func parseTag(tag string) (name string, omitempty bool) {
	if tag == "" || tag == "-" {
		return "", false
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return parts[0], omitempty
}

func encodeField(values url.Values, name string, v reflect.Value) error {
	switch v.Kind() {
	case reflect.String:
		values.Set(name, v.String())
	case reflect.Bool:
		values.Set(name, strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		values.Set(name, strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		values.Set(name, strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		values.Set(name, strconv.FormatFloat(v.Float(), 'f', -1, 64))
	case reflect.Ptr:
		if !v.IsNil() {
			return encodeField(values, name, v.Elem())
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			element := url.Values{}
			if err := encodeField(element, name, v.Index(i)); err != nil {
				return err
			}
			values.Add(name, element.Get(name))
		}
	default:
		return fmt.Errorf("querystring: unsupported type %v for field %s", v.Kind(), name)
	}
	return nil
}
