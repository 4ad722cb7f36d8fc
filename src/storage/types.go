package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONStringArray is a string list stored as a JSON array in a TEXT column.
type JSONStringArray []string

// Scan implements the sql.Scanner interface for JSONStringArray
func (j *JSONStringArray) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan type %T into JSONStringArray", value)
	}
	if len(raw) == 0 || string(raw) == "[]" {
		*j = JSONStringArray{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(j))
}

// Value implements the driver.Valuer interface for JSONStringArray
func (j JSONStringArray) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(j))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
