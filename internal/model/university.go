package model

import (
	"bytes"
	"encoding/json"
	"time"
)

type University struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy *int64    `json:"created_by"`
	UpdatedBy *int64    `json:"updated_by"`
	DeletedAt NullTime  `json:"deleted_at"`
}

func (u University) Deleted() bool {
	return u.DeletedAt.Valid
}

type UniversityInput struct {
	Name string `json:"name"`
}

// NullTime accepts null, an RFC 3339 string, or the {"Time":..., "Valid":...}
// object some backends emit for soft-delete columns.
type NullTime struct {
	Time  time.Time
	Valid bool
}

func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time)
}

func (n *NullTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*n = NullTime{}
		return nil
	}

	if b[0] == '"' {
		var t time.Time
		if err := json.Unmarshal(b, &t); err != nil {
			return err
		}
		*n = NullTime{Time: t, Valid: true}
		return nil
	}

	var wire struct {
		Time  time.Time `json:"Time"`
		Valid bool      `json:"Valid"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*n = NullTime{Time: wire.Time, Valid: wire.Valid}
	return nil
}
