package progress

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
)

// Memories is a sorted set of free-form notes about a student. It is stored
// as a JSON array.
type Memories []string

// Add inserts memory and reports whether it was new.
func (m *Memories) Add(memory string) bool {
	i, found := slices.BinarySearch(*m, memory)
	if found {
		return false
	}
	*m = slices.Insert(*m, i, memory)
	return true
}

// Contains reports whether memory is in the set.
func (m Memories) Contains(memory string) bool {
	_, found := slices.BinarySearch(m, memory)
	return found
}

// UnmarshalJSON decodes and normalizes the set.
func (m *Memories) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	slices.Sort(raw)
	*m = slices.Compact(raw)
	return nil
}

// Scan implements the sql.Scanner interface
func (m *Memories) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Memories", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return m.UnmarshalJSON(data)
}

// Value implements the driver.Valuer interface
func (m Memories) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(m))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
