package server

import (
	"context"

	"github.com/Tyrowin/roomchat/internal/identity"
	"github.com/Tyrowin/roomchat/internal/store"
)

// RoomLookup is the part of the store access control needs.
type RoomLookup interface {
	GetRoom(ctx context.Context, id int64) (store.Room, error)
}

// CanAccess reports whether p may join roomID: the room's owner and staff
// may, nobody may join a room that cannot be loaded.
func CanAccess(ctx context.Context, rooms RoomLookup, p identity.Principal, roomID int64) bool {
	room, err := rooms.GetRoom(ctx, roomID)
	if err != nil {
		return false
	}
	return room.OwnerID == p.ID || p.IsStaff
}
