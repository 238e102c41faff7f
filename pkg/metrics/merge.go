package metrics

import (
	"reflect"
	"strings"
)

// Merge flattens structs (by json tag) and maps into one record. Later
// items overwrite earlier keys.
func Merge(items ...interface{}) Record {
	result := make(Record)
	for _, item := range items {
		if item == nil {
			continue
		}
		mergeValue(result, reflect.ValueOf(item))
	}
	return result
}

func mergeValue(result Record, v reflect.Value) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			result[iter.Key().String()] = iter.Value().Interface()
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous {
				mergeValue(result, v.Field(i))
				continue
			}
			name := strings.Split(field.Tag.Get("json"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			result[name] = v.Field(i).Interface()
		}
	}
}
