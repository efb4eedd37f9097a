package normalize

import (
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

// value is a located JSON value. A missing key has typ NotExist.
type value struct {
	raw []byte
	typ jsonparser.ValueType
}

var missing = value{typ: jsonparser.NotExist}

func get(data []byte, keys ...string) value {
	if len(data) == 0 {
		return missing
	}
	raw, typ, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return missing
	}
	return value{raw: raw, typ: typ}
}

// present reports whether the value carries something other than null.
func (v value) present() bool {
	switch v.typ {
	case jsonparser.NotExist, jsonparser.Null, jsonparser.Unknown:
		return false
	}
	return true
}

// first returns the first element of an array value.
func (v value) first() value {
	out := missing
	v.each(func(item value) {
		if out.typ == jsonparser.NotExist {
			out = item
		}
	})
	return out
}

func (v value) each(fn func(value)) {
	if v.typ != jsonparser.Array {
		return
	}
	_, _ = jsonparser.ArrayEach(v.raw, func(raw []byte, typ jsonparser.ValueType, _ int, err error) {
		if err != nil {
			return
		}
		fn(value{raw: raw, typ: typ})
	})
}

func unescape(raw []byte) string {
	s, err := jsonparser.ParseString(raw)
	if err != nil {
		return string(raw)
	}
	return s
}

// scalar renders a string, number or boolean value as text.
func (v value) scalar() (string, bool) {
	var s string
	switch v.typ {
	case jsonparser.String:
		s = unescape(v.raw)
	case jsonparser.Number, jsonparser.Boolean:
		s = string(v.raw)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func (v value) integer() (int, bool) {
	switch v.typ {
	case jsonparser.Number:
		if n, err := jsonparser.ParseInt(v.raw); err == nil {
			return int(n), true
		}
		if f, err := jsonparser.ParseFloat(v.raw); err == nil {
			return int(f), true
		}
	case jsonparser.String:
		if n, err := strconv.Atoi(strings.TrimSpace(unescape(v.raw))); err == nil {
			return n, true
		}
	}
	return 0, false
}

func (v value) boolean() (bool, bool) {
	switch v.typ {
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(v.raw)
		return b, err == nil
	case jsonparser.String:
		b, err := strconv.ParseBool(strings.TrimSpace(unescape(v.raw)))
		return b, err == nil
	}
	return false, false
}
