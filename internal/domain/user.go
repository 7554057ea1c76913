// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strconv"
)

const MaxUsernameLen = 64

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID int64

func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

// User is the identity resolved from a bearer credential.
type User struct {
	ID       UserID `json:"id"`
	Name     string `json:"user_name"`
	Avatar   string `json:"avatar"`
	Verified bool   `json:"verified"`
	Blocked  bool   `json:"blocked"`
}

func NewUser(id UserID, name, avatar string) (*User, error) {
	if len(name) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{ID: id, Name: name, Avatar: avatar}, nil
}

func (u *User) Presence() Presence {
	return Presence{
		UserID:   u.ID,
		UserName: u.Name,
		Avatar:   u.Avatar,
		Verified: u.Verified,
	}
}
