package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// KeyString normalizes a backend or store identifier to its string form.
// Whole floats render without a fractional part so that 7.0 decoded from
// JSON matches the store key "7".
func KeyString(v any) (string, bool) {
	switch k := v.(type) {
	case nil:
		return "", false
	case string:
		return k, k != ""
	case []byte:
		return string(k), len(k) > 0
	case json.Number:
		return k.String(), true
	case int:
		return strconv.Itoa(k), true
	case int32:
		return strconv.FormatInt(int64(k), 10), true
	case int64:
		return strconv.FormatInt(k, 10), true
	case uint:
		return strconv.FormatUint(uint64(k), 10), true
	case uint32:
		return strconv.FormatUint(uint64(k), 10), true
	case uint64:
		return strconv.FormatUint(k, 10), true
	case float32:
		return strconv.FormatFloat(float64(k), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64), true
	case fmt.Stringer:
		return k.String(), true
	default:
		return "", false
	}
}
