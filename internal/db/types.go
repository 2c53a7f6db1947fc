package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList is a []string stored as a jsonb array. NULL scans as empty.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (s *StringList) Scan(src any) error {
	raw, err := jsonSource(src)
	if err != nil {
		return fmt.Errorf("scan StringList: %w", err)
	}
	if raw == nil {
		*s = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan StringList: %w", err)
	}
	*s = out
	return nil
}

// JSON is raw jsonb. An empty value is written as NULL.
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if len(strings.TrimSpace(string(j))) == 0 {
		return nil, nil
	}
	if !json.Valid(j) {
		return nil, fmt.Errorf("invalid JSON value")
	}
	return string(j), nil
}

func (j *JSON) Scan(src any) error {
	raw, err := jsonSource(src)
	if err != nil {
		return fmt.Errorf("scan JSON: %w", err)
	}
	if raw == nil {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], raw...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}

func jsonSource(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported source type %T", src)
	}
}
