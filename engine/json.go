package engine

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Path extracts the value at a dot separated path from a JSON
// document, for the cases where declaring response structs is not
// worth it. Returns a parse error when the path is absent.
func Path(body []byte, path string) (gjson.Result, error) {
	r := gjson.GetBytes(body, path)
	if !r.Exists() {
		return gjson.Result{}, Parsef("missing json path %q", path)
	}
	return r, nil
}

// PathAs extracts the value at path and unmarshals it into T. A
// missing path is a parse error; a value present but of the wrong
// shape is a json error, never a silent coercion.
func PathAs[T any](body []byte, path string) (T, error) {
	var v T
	r := gjson.GetBytes(body, path)
	if !r.Exists() {
		return v, Parsef("missing json path %q", path)
	}
	if err := json.Unmarshal([]byte(r.Raw), &v); err != nil {
		var zero T
		return zero, WrapJSON(err)
	}
	return v, nil
}

// PathString is PathAs for string values.
func PathString(body []byte, path string) (string, error) {
	return PathAs[string](body, path)
}

// PathStrings collects the string elements of the array at path.
// An absent path yields an empty slice, not an error.
func PathStrings(body []byte, path string) []string {
	var out []string
	for _, r := range gjson.GetBytes(body, path).Array() {
		if s := r.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ArrayAt returns the elements of the array at path, empty when the
// path is missing or not an array.
func ArrayAt(body []byte, path string) []gjson.Result {
	r := gjson.GetBytes(body, path)
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}
