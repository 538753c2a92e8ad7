package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// UpdatesFromPtrDTO builds a column->value map from the non-nil pointer fields of a
// pointer-to-struct DTO. Columns are named by the json tag; untagged or `json:"-"`
// fields are skipped.
func UpdatesFromPtrDTO(dto any) map[string]any {
	res := make(map[string]any)
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return res
	}
	s := v.Elem()
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		fv := s.Field(i)
		if fv.Kind() != reflect.Ptr || fv.IsNil() {
			continue
		}
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		res[name] = fv.Elem().Interface()
	}
	return res
}

func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}

// Pagination reads limit/offset query values. A zero or oversized limit falls back to def.
func Pagination(limitStr, offsetStr string, def, max int) (limit, offset int) {
	limit = ParseIntDefault(limitStr, def)
	if limit == 0 || limit > max {
		limit = def
	}
	return limit, ParseIntDefault(offsetStr, 0)
}
