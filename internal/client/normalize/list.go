package normalize

import "github.com/buger/jsonparser"

// List coerces a list-valued field: absent or null gives an empty list, a
// scalar gives a singleton and a list passes through. Non-string items are
// kept as their JSON text.
func List(raw []byte) []string {
	return list(get(raw))
}

func list(v value) []string {
	out := []string{}
	switch v.typ {
	case jsonparser.Array:
		v.each(func(item value) {
			switch item.typ {
			case jsonparser.String:
				out = append(out, unescape(item.raw))
			case jsonparser.Null, jsonparser.NotExist, jsonparser.Unknown:
			default:
				out = append(out, string(item.raw))
			}
		})
	case jsonparser.String:
		if s := unescape(v.raw); s != "" {
			out = append(out, s)
		}
	case jsonparser.Number, jsonparser.Boolean, jsonparser.Object:
		out = append(out, string(v.raw))
	}
	return out
}
