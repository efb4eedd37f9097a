package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type Role struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}

// User is the authenticated CMS user as persisted between runs.
type User struct {
	ID        FlexID `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
	Blocked   bool   `json:"blocked"`
	Role      *Role  `json:"role,omitempty"`
}

// Session is a bearer token with its user. The zero value is unauthenticated.
type Session struct {
	Token string
	User  *User
}

func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type AuthResponse struct {
	JWT  string `json:"jwt"`
	User User   `json:"user"`
}

// FlexID decodes an identifier sent either as a JSON number or a string.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*f = FlexID(s)
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(f))
}
