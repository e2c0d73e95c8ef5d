package messages

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float accepts a JSON number or a numeric string. The model backend serialises
// numpy scalars inconsistently, so both shapes show up on the wire.
type Float float64

func (f *Float) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*f = 0
	case float64:
		*f = Float(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", x)
		}
		*f = Float(n)
	case bool:
		if x {
			*f = 1
		} else {
			*f = 0
		}
	default:
		return fmt.Errorf("unsupported numeric value %s", string(b))
	}
	if math.IsNaN(float64(*f)) || math.IsInf(float64(*f), 0) {
		return fmt.Errorf("non-finite number %s", string(b))
	}
	return nil
}

func (f Float) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}
