package utils

import "strconv"

// ToString renders a decoded JSON scalar as a string. Numbers are formatted
// without an exponent so numeric account ids round-trip ("123" stays "123").
func ToString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}
