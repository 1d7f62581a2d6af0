package appstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrInvalidPatch is returned when an update patch is not a JSON object or
// does not fit the entity's field types.
var ErrInvalidPatch = errors.New("invalid patch")

var pathEscaper = strings.NewReplacer(`\`, `\\`, `.`, `\.`, `*`, `\*`, `?`, `\?`)

// fieldNames caches the exact JSON member names of each entity type.
var fieldNames sync.Map // reflect.Type -> map[string]struct{}

func jsonFields(t reflect.Type) map[string]struct{} {
	if v, ok := fieldNames.Load(t); ok {
		return v.(map[string]struct{})
	}
	names := make(map[string]struct{})
	collectFields(t, names)
	fieldNames.Store(t, names)
	return names
}

func collectFields(t reflect.Type, names map[string]struct{}) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			collectFields(f.Type, names)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		names[name] = struct{}{}
	}
}

// mergePatch replaces each top-level key of cur with the value from patch
// and decodes the result into a fresh T. Nested objects are replaced whole.
// Keys that do not name a field of T exactly (case included) are skipped.
func mergePatch[T any](cur T, patch json.RawMessage) (T, error) {
	var zero T
	if !gjson.ValidBytes(patch) {
		return zero, fmt.Errorf("%w: not valid JSON", ErrInvalidPatch)
	}
	p := gjson.ParseBytes(patch)
	if !p.IsObject() {
		return zero, fmt.Errorf("%w: expected an object", ErrInvalidPatch)
	}

	doc, err := json.Marshal(cur)
	if err != nil {
		return zero, fmt.Errorf("appstore: merge: %w", err)
	}
	fields := jsonFields(reflect.TypeOf(cur))
	p.ForEach(func(key, value gjson.Result) bool {
		if _, ok := fields[key.String()]; !ok {
			return true
		}
		doc, err = sjson.SetRawBytes(doc, pathEscaper.Replace(key.String()), []byte(value.Raw))
		return err == nil
	})
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	var next T
	if err := json.Unmarshal(doc, &next); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return next, nil
}
