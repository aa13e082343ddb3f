package fwriter

import (
	"math"
	"runtime"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var lineEnding = "\n"

func init() {
	if runtime.GOOS == "windows" {
		lineEnding = "\r\n"
	}
}

// payloadBytes renders a payload as text. raw is true when the payload already was a
// byte buffer, which is written as is and never gets a line terminator.
func payloadBytes(p interface{}) (data []byte, raw bool, err error) {
	switch v := p.(type) {
	case []byte:
		return v, true, nil
	case string:
		return []byte(v), false, nil
	case bool:
		return []byte(strconv.FormatBool(v)), false, nil
	case float64:
		return []byte(formatNumber(v)), false, nil
	case float32:
		return []byte(formatNumber(float64(v))), false, nil
	case int:
		return []byte(strconv.Itoa(v)), false, nil
	case int64:
		return []byte(strconv.FormatInt(v, 10)), false, nil
	case int32:
		return []byte(strconv.FormatInt(int64(v), 10)), false, nil
	case uint:
		return []byte(strconv.FormatUint(uint64(v), 10)), false, nil
	case uint64:
		return []byte(strconv.FormatUint(v, 10)), false, nil
	case uint32:
		return []byte(strconv.FormatUint(uint64(v), 10)), false, nil
	case jsoniter.Number:
		return []byte(v.String()), false, nil
	}

	data, err = json.Marshal(p)
	return data, false, err
}

// formatNumber prints floats the way JavaScript's Number#toString does for the
// common cases: integers without a fraction, exponents beyond 1e21 and below 1e-6.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	// Go pads the exponent to two digits, JavaScript does not
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mant + "e" + sign + digits
}
