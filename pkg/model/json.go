package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonValue encodes v for a jsonb column. The result is a string so that the
// simple query protocol sends it as text rather than bytea.
func jsonValue(v interface{}) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// jsonScan decodes a jsonb column into dst.
func jsonScan(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
