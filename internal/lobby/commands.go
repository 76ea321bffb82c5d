package lobby

import (
	"context"

	"github.com/DoyleJ11/draft-rooms/internal/hub"
)

// Command is a validated client action arriving over a live connection.
type Command interface{ isCommand() }

type BanCommand struct{ Champion string }

type PickCommand struct{ Champion string }

type SubmitResultCommand struct{ Result GameResult }

type UpdateTeamCommand struct {
	UserID   string
	Team     Team
	Position *int
}

type UpdateReadyCommand struct {
	UserID  string
	IsReady bool
}

func (BanCommand) isCommand()          {}
func (PickCommand) isCommand()         {}
func (SubmitResultCommand) isCommand() {}
func (UpdateTeamCommand) isCommand()   {}
func (UpdateReadyCommand) isCommand()  {}

// Dispatch routes cmd from conn to the matching operation. Draft actions are
// attributed to the user bound to the connection.
func (l *Lobby) Dispatch(ctx context.Context, conn *hub.Conn, cmd Command) error {
	if conn.Role != hub.RoleParticipant {
		return ErrSpectatorAction
	}

	var err error
	switch c := cmd.(type) {
	case BanCommand:
		_, err = l.Ban(ctx, conn.UserID, c.Champion)
	case PickCommand:
		_, err = l.Pick(ctx, conn.UserID, c.Champion)
	case SubmitResultCommand:
		_, err = l.SubmitResult(ctx, c.Result)
	case UpdateTeamCommand:
		_, err = l.UpdateTeam(ctx, c.UserID, c.Team, c.Position)
	case UpdateReadyCommand:
		_, err = l.UpdateReady(ctx, c.UserID, c.IsReady)
	}
	return err
}
