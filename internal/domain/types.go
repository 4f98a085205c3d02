// Custom column types shared by the persistence models: the weekday set of a
// weekly routine and the free-form JSON metadata blobs. Both serialize to
// TEXT so they work identically on SQLite and server databases.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// WeekdaySet is a set of ISO weekday indexes (Mon=1 .. Sun=7), persisted as
// a comma-separated TEXT column ("1,3,5"). The zero value is the empty set.
type WeekdaySet []int

// Contains reports whether day is in the set.
func (w WeekdaySet) Contains(day int) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}

// Valid reports whether every entry is a legal ISO weekday index and the set
// holds no duplicates.
func (w WeekdaySet) Valid() bool {
	seen := make(map[int]struct{}, len(w))
	for _, d := range w {
		if d < 1 || d > 7 {
			return false
		}
		if _, dup := seen[d]; dup {
			return false
		}
		seen[d] = struct{}{}
	}
	return true
}

// Value implements driver.Valuer, encoding the set as sorted CSV.
func (w WeekdaySet) Value() (driver.Value, error) {
	if len(w) == 0 {
		return "", nil
	}
	days := make([]int, len(w))
	copy(days, w)
	sort.Ints(days)
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ","), nil
}

// Scan implements sql.Scanner for TEXT and BLOB column values.
func (w *WeekdaySet) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*w = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("weekday set: unsupported column type %T", src)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*w = nil
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make(WeekdaySet, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("weekday set: bad entry %q", p)
		}
		out = append(out, d)
	}
	*w = out
	return nil
}

// JSONMap is a free-form metadata object persisted as a JSON TEXT column.
// A nil map serializes to "{}" so the column is never SQL NULL.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("json map: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}
