// Package repository is the durable Postgres copy of workspace state. Redis
// holds the hot copy; every write here is best effort from the workers' view.
package repository

import (
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// jsonb marshals v for a JSONB column; nil maps and slices become SQL NULL.
func jsonb(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

func fromJSONB(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
