package domain

import "strconv"

type RoomID int64

func (id RoomID) String() string { return strconv.FormatInt(int64(id), 10) }

type Room struct {
	ID    RoomID
	Name  string
	Block bool
}
