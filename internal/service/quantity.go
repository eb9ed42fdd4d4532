package service

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sakif/clothconnect/internal/apperror"
)

// MaxQuantity bounds a single count so running totals stay well inside an
// int64 column.
const MaxQuantity = 1_000_000

// ParseQuantity reads a positive item count from a JSON value. Forms send
// numbers as strings, so both 7 and "7" are accepted; anything that is not a
// whole number greater than zero is rejected.
func ParseQuantity(raw json.RawMessage) (int, error) {
	invalid := apperror.ValidationFailed("quantity", "Quantity must be a positive number")

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, invalid
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, invalid
		}
		text = strings.TrimSpace(text)
	} else {
		var num json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&num); err != nil {
			return 0, invalid
		}
		text = num.String()
	}

	n, err := strconv.Atoi(text)
	if err != nil {
		// 3.0 is still a whole number.
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || f <= 0 || f > MaxQuantity || f != float64(int(f)) {
			return 0, invalid
		}
		n = int(f)
	}
	if n <= 0 || n > MaxQuantity {
		return 0, invalid
	}
	return n, nil
}
