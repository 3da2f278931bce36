package model

import "time"

const (
	RoleAdmin = 1
	RoleUser  = 2
)

const (
	StatusDisabled = 0
	StatusActive   = 1
)

type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	Role          int        `json:"role"`
	Status        int        `json:"status"`
	LastLoginTime *time.Time `json:"last_login_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CurrentUser is what the who-am-I endpoint reports for the session owner.
type CurrentUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  int    `json:"role"`
}

type UserCreate struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     int    `json:"role"`
	Status   int    `json:"status"`
}

// UserUpdate is a partial update; nil fields are left untouched by the server.
type UserUpdate struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *int    `json:"role,omitempty"`
	Status   *int    `json:"status,omitempty"`
}

func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Password == nil && u.Role == nil && u.Status == nil
}

func RoleLabel(role int) string {
	switch role {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}

func StatusLabel(status int) string {
	switch status {
	case StatusActive:
		return "active"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}
