package utils

import (
	"reflect"
	"strconv"
	"strings"
	"time"
)

func FormatEpoch(millis int64) string {
	return time.UnixMilli(millis).
		UTC().
		Format(time.RFC3339)
}

// FormatEpochPtr formats nullable timestamps, returning nil for nil.
func FormatEpochPtr(millis *int64) *string {
	if millis == nil {
		return nil
	}
	s := FormatEpoch(*millis)
	return &s
}

func NowUTC() int64 {
	return time.Now().
		UTC().
		UnixMilli()
}

// ParseID parses positive int64 identifiers from path parameters.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func Sanitize(o any) {
	v := reflect.ValueOf(o)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic("sanitize: expected pointer to struct")
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		panic("sanitize: expected struct")
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(sanitizeString(field.String()))

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.String {
				field.Elem().SetString(sanitizeString(field.Elem().String()))
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for j := 0; j < field.Len(); j++ {
					field.Index(j).SetString(sanitizeString(field.Index(j).String()))
				}
			}
		}
	}
}

func sanitizeString(s string) string {
	return strings.TrimSpace(s)
}
