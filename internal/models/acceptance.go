package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Acceptance is the organizer decision on a contributed talk. It persists as 1, 0 or NULL.
// The zero value is Pending.
type Acceptance int8

const (
	Pending Acceptance = iota
	Rejected
	Accepted
)

// Code returns the stored form: 1 accepted, 0 rejected, -1 pending (the NULL sentinel
// used in comparisons).
func (a Acceptance) Code() int64 {
	switch a {
	case Accepted:
		return 1
	case Rejected:
		return 0
	default:
		return -1
	}
}

func (a Acceptance) String() string {
	switch a {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Valid reports whether a is one of the three known states.
func (a Acceptance) Valid() bool {
	return a == Pending || a == Rejected || a == Accepted
}

// ParseAcceptance accepts the form encodings used by the admin views:
// "" / "null" / "pending", "1" / "accepted", "0" / "rejected".
func ParseAcceptance(s string) (Acceptance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "pending":
		return Pending, nil
	case "1", "accepted":
		return Accepted, nil
	case "0", "rejected":
		return Rejected, nil
	}
	return Pending, fmt.Errorf("invalid acceptance value %q", s)
}

// MarshalJSON encodes Pending as null and the decisions as 1 / 0.
func (a Acceptance) MarshalJSON() ([]byte, error) {
	if a == Pending {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%d", a.Code())), nil
}

// UnmarshalJSON accepts null, 0, 1 and their string forms.
func (a *Acceptance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Pending
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	v, err := ParseAcceptance(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Value implements driver.Valuer.
func (a Acceptance) Value() (driver.Value, error) {
	if a == Pending {
		return nil, nil
	}
	return a.Code(), nil
}

// Scan implements sql.Scanner.
func (a *Acceptance) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = Pending
	case int64:
		return a.setInt(v)
	case int32:
		return a.setInt(int64(v))
	case int16:
		return a.setInt(int64(v))
	case []byte:
		return a.Scan(string(v))
	case string:
		p, err := ParseAcceptance(v)
		if err != nil {
			return err
		}
		*a = p
	default:
		return fmt.Errorf("cannot scan %T into Acceptance", src)
	}
	return nil
}

func (a *Acceptance) setInt(v int64) error {
	switch v {
	case 0:
		*a = Rejected
	case 1:
		*a = Accepted
	default:
		return fmt.Errorf("invalid stored acceptance %d", v)
	}
	return nil
}
