package testutil

import (
	"reflect"
	"testing"
)

// Field returns the named exported field of a captured view model. Embedded
// fields (such as BaseVM) are searched too.
func Field(t *testing.T, data any, name string) any {
	t.Helper()
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		t.Fatalf("view model is %T, not a struct", data)
	}
	f := v.FieldByName(name)
	if !f.IsValid() {
		t.Fatalf("view model %T has no field %q", data, name)
	}
	return f.Interface()
}

// StringField returns a string field of a captured view model.
func StringField(t *testing.T, data any, name string) string {
	t.Helper()
	s, ok := Field(t, data, name).(string)
	if !ok {
		t.Fatalf("field %q is not a string", name)
	}
	return s
}

// StringsField returns a []string field of a captured view model.
func StringsField(t *testing.T, data any, name string) []string {
	t.Helper()
	s, ok := Field(t, data, name).([]string)
	if !ok {
		t.Fatalf("field %q is not a []string", name)
	}
	return s
}

// MapField returns a map[string]string field of a captured view model.
func MapField(t *testing.T, data any, name string) map[string]string {
	t.Helper()
	m, ok := Field(t, data, name).(map[string]string)
	if !ok {
		t.Fatalf("field %q is not a map[string]string", name)
	}
	return m
}
