package helpers

import "github.com/valyala/fastjson"

// FindFirstByKey walks v depth-first in document order and returns the value of
// the first object member named key, or nil.
func FindFirstByKey(v *fastjson.Value, key string) *fastjson.Value {
	if v == nil {
		return nil
	}

	switch v.Type() {
	case fastjson.TypeObject:
		o, _ := v.Object()
		var found *fastjson.Value
		o.Visit(func(k []byte, child *fastjson.Value) {
			if found != nil {
				return
			}
			if string(k) == key {
				found = child
				return
			}
			found = FindFirstByKey(child, key)
		})
		return found
	case fastjson.TypeArray:
		items, _ := v.Array()
		for _, item := range items {
			if found := FindFirstByKey(item, key); found != nil {
				return found
			}
		}
	}

	return nil
}

// StringOf renders scalars as plain strings. Objects, arrays and null give "".
func StringOf(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse:
		return v.String()
	default:
		return ""
	}
}
