package diseasesh

import (
	"bytes"
	"encoding/json"
	"fmt"

	"HealthMetricsETL/internal/domain"
)

// timeline decodes an API timeline object ({"1/5/23": 1234, ...}) into an
// ordered point list. encoding/json maps would lose key order, and order is
// what lets a later duplicate entry win during normalization, so the object
// is walked token by token instead. Null values coerce to zero; anything
// non-numeric fails the decode.
type timeline []domain.RawPoint

func (t *timeline) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("timeline: expected object, got %v", tok)
	}

	var points []domain.RawPoint
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("timeline: expected string key, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}

		var value int64
		switch v := valTok.(type) {
		case json.Number:
			value, err = v.Int64()
			if err != nil {
				f, fErr := v.Float64()
				if fErr != nil {
					return fmt.Errorf("timeline: value for %s: %w", key, err)
				}
				value = int64(f)
			}
		case nil:
			value = 0
		default:
			return fmt.Errorf("timeline: non-numeric value for %s: %v", key, valTok)
		}

		points = append(points, domain.RawPoint{Date: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*t = points
	return nil
}
