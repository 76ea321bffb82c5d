// Package apierr maps domain errors onto wire codes and HTTP statuses.
package apierr

import (
	"context"
	"errors"
	"net/http"

	"github.com/DoyleJ11/draft-rooms/internal/engine"
	"github.com/DoyleJ11/draft-rooms/internal/lobby"
	"github.com/DoyleJ11/draft-rooms/internal/registry"
	"github.com/DoyleJ11/draft-rooms/internal/types"
)

type class struct {
	err    error
	code   string
	status int
}

var classes = []class{
	{registry.ErrRoomNotFound, "room_not_found", http.StatusNotFound},
	{lobby.ErrUserNotFound, "user_not_found", http.StatusNotFound},
	{lobby.ErrInvalidSettings, "invalid_settings", http.StatusBadRequest},
	{lobby.ErrInvalidTeam, "invalid_team", http.StatusBadRequest},
	{lobby.ErrInvalidPosition, "invalid_position", http.StatusBadRequest},
	{lobby.ErrInvalidResult, "invalid_result", http.StatusBadRequest},
	{lobby.ErrNicknameRequired, "nickname_required", http.StatusBadRequest},
	{lobby.ErrNoLiveChannel, "no_live_channel", http.StatusBadRequest},
	{types.ErrMalformedMessage, "malformed_message", http.StatusBadRequest},
	{engine.ErrChampionRequired, "champion_required", http.StatusBadRequest},
	{engine.ErrUnsupportedCommand, "unsupported_command", http.StatusBadRequest},
	{lobby.ErrCapacityExceeded, "capacity_exceeded", http.StatusConflict},
	{lobby.ErrRoomFull, "room_full", http.StatusConflict},
	{lobby.ErrPositionTaken, "position_taken", http.StatusConflict},
	{lobby.ErrResultRejected, "result_rejected", http.StatusConflict},
	{engine.ErrNotYourTurn, "not_your_turn", http.StatusConflict},
	{engine.ErrChampionClaimed, "champion_already_claimed", http.StatusConflict},
	{engine.ErrDraftNotActive, "draft_not_active", http.StatusConflict},
	{lobby.ErrSpectatorAction, "spectator_action", http.StatusForbidden},
	{lobby.ErrLobbyClosed, "room_closed", http.StatusGone},
	{context.Canceled, "canceled", http.StatusServiceUnavailable},
	{context.DeadlineExceeded, "timeout", http.StatusServiceUnavailable},
}

// Classify returns the wire code and HTTP status for err.
func Classify(err error) (string, int) {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.code, c.status
		}
	}
	return "internal", http.StatusInternalServerError
}

// Detail is the client-facing message. Unknown errors are not echoed.
func Detail(err error) string {
	if errors.Is(err, registry.ErrRoomNotFound) {
		return "Room not found"
	}
	if _, status := Classify(err); status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
