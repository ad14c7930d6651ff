package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// scalar is a record value as sent by clients: a JSON string or number, kept as text.
type scalar string

// UnmarshalJSON keeps numbers in their literal form, so 35 becomes "35" and 1.50 stays "1.50".
func (s *scalar) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
	case string:
		*s = scalar(t)
	case json.Number:
		*s = scalar(t.String())
	default:
		return fmt.Errorf("%w: values must be strings or numbers", ErrInvalidRecord)
	}
	return nil
}

// decodeScalars reads a flat JSON object. Keys holding null map to nil.
func decodeScalars(data []byte) (map[string]*scalar, error) {
	var raw map[string]*scalar
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
