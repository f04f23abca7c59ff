package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Tyrowin/roomchat/internal/identity"
	"github.com/Tyrowin/roomchat/internal/mocks"
	"github.com/Tyrowin/roomchat/internal/store"
)

func TestCanAccess(t *testing.T) {
	room := store.Room{ID: 10, OwnerID: owner.ID, CreatedAt: time.Now()}

	tests := []struct {
		name      string
		principal identity.Principal
		room      store.Room
		err       error
		want      bool
	}{
		{name: "owner", principal: owner, room: room, want: true},
		{name: "staff", principal: staff, room: room, want: true},
		{name: "other user", principal: guest, room: room, want: false},
		{name: "missing room", principal: owner, err: store.ErrRoomNotFound, want: false},
		{name: "missing room for staff", principal: staff, err: store.ErrRoomNotFound, want: false},
		{name: "lookup failure", principal: owner, err: errors.New("db down"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			rooms := mocks.NewMockStore(ctrl)
			rooms.EXPECT().GetRoom(gomock.Any(), int64(10)).Return(tt.room, tt.err)

			require.Equal(t, tt.want, CanAccess(context.Background(), rooms, tt.principal, 10))
		})
	}
}
