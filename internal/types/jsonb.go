package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions. These ensure the JSONB types implement
// both sql.Scanner and driver.Valuer, catching signature drift at compile time
// rather than at runtime. Scan is on pointer receivers; Value on value
// receivers.
var (
	_ sql.Scanner   = (*ChannelList)(nil)
	_ driver.Valuer = ChannelList(nil)
	_ sql.Scanner   = (*LookupProperties)(nil)
	_ driver.Valuer = LookupProperties(nil)
	_ sql.Scanner   = (*AttributeMap)(nil)
	_ driver.Valuer = AttributeMap(nil)
)

// scanJSONB scans a JSONB database value into a Go pointer. It handles nil,
// []byte, and string representations from different drivers.
func scanJSONB(dest any, value any) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// valueJSONB converts a Go value to a JSONB-compatible driver.Value.
func valueJSONB(v any) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// ChannelList is the JSONB-backed list of channel entries on a config row.
type ChannelList []Channel

// Scan implements sql.Scanner.
func (cl *ChannelList) Scan(value any) error {
	if value == nil {
		*cl = nil
		return nil
	}
	return scanJSONB(cl, value)
}

// Value implements driver.Valuer.
func (cl ChannelList) Value() (driver.Value, error) {
	if cl == nil {
		return nil, nil
	}
	return valueJSONB(cl)
}

// LookupProperties is the JSONB-backed ordered predicate list on a candidate
// row.
type LookupProperties []LookupProperty

// Scan implements sql.Scanner.
func (lp *LookupProperties) Scan(value any) error {
	if value == nil {
		*lp = nil
		return nil
	}
	return scanJSONB(lp, value)
}

// Value implements driver.Valuer.
func (lp LookupProperties) Value() (driver.Value, error) {
	if lp == nil {
		return nil, nil
	}
	return valueJSONB(lp)
}

// AttributeMap is the JSONB-backed free-form attribute map on vehicle rows.
type AttributeMap map[string]any

// Scan implements sql.Scanner.
func (am *AttributeMap) Scan(value any) error {
	if value == nil {
		*am = nil
		return nil
	}
	return scanJSONB(am, value)
}

// Value implements driver.Valuer.
func (am AttributeMap) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return valueJSONB(am)
}
