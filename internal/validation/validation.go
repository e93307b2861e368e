package validation

import (
	"math"
	"strings"
	"time"
)

// Violations maps a field name to a machine-readable reason.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		v[field] = "not_a_number"
		return
	}
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

// Digits requires a non-empty run of decimal digits, as printed under a barcode.
func Digits(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		v[field] = "required"
		return
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			v[field] = "digits_only"
			return
		}
	}
}

// Date accepts an empty value or a YYYY-MM-DD date.
func Date(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		v[field] = "invalid_date"
	}
}
