package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field accessors for store records. Gateway records carry string, bool,
// time.Time, []string and decimal.Decimal values; anything absent or of an
// unexpected type decodes to the zero value.

func fieldString(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return v
}

func fieldBool(fields map[string]any, key string) bool {
	v, _ := fields[key].(bool)
	return v
}

func fieldTime(fields map[string]any, key string) time.Time {
	v, _ := fields[key].(time.Time)
	return v
}

func fieldStrings(fields map[string]any, key string) []string {
	v, _ := fields[key].([]string)
	return v
}

func fieldDecimal(fields map[string]any, key string) decimal.Decimal {
	switch v := fields[key].(type) {
	case decimal.Decimal:
		return v
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}
