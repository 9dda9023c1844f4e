package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// StringList is stored as a comma separated TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return strings.Join(l, ","), nil
}

func (l *StringList) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("StringList: unsupported type %T", src)
	}
	if s == "" {
		*l = nil
		return nil
	}
	*l = strings.Split(s, ",")
	return nil
}
