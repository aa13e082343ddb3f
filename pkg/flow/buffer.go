package flow

import (
	"math"

	jsoniter "github.com/json-iterator/go"
)

const bufferType = "Buffer"

// decodeBuffer turns {"type":"Buffer","data":[...]} into raw bytes. Anything else,
// including a data element outside 0..255, is left alone.
func decodeBuffer(p interface{}) ([]byte, bool) {
	m, ok := p.(map[string]interface{})
	if !ok || len(m) != 2 || m["type"] != bufferType {
		return nil, false
	}
	data, ok := m["data"].([]interface{})
	if !ok {
		return nil, false
	}

	out := make([]byte, len(data))
	for i, v := range data {
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case jsoniter.Number:
			x, err := n.Float64()
			if err != nil {
				return nil, false
			}
			f = x
		default:
			return nil, false
		}
		if f < 0 || f > 255 || f != math.Trunc(f) {
			return nil, false
		}
		out[i] = byte(f)
	}
	return out, true
}

func encodeBuffer(b []byte) map[string]interface{} {
	data := make([]int, len(b))
	for i, c := range b {
		data[i] = int(c)
	}
	return map[string]interface{}{"type": bufferType, "data": data}
}
