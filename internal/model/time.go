package model

import (
	"fmt"
	"time"
)

// ISOTime formats a timestamp as ISO-8601 in UTC.
type ISOTime time.Time

const isoFormat = "2006-01-02T15:04:05.000000Z07:00"

// MarshalJSON implements the json.Marshaler interface.
func (t ISOTime) MarshalJSON() ([]byte, error) {
	formatted := fmt.Sprintf("\"%s\"", time.Time(t).UTC().Format(isoFormat))
	return []byte(formatted), nil
}

// String returns the same representation as MarshalJSON without quotes.
func (t ISOTime) String() string {
	return time.Time(t).UTC().Format(isoFormat)
}
