package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed create_game_sessions.sql
var createGameSessionsSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createGameSessionsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS answer_history, game_sessions, team_members`)
			return err
		},
	)
}
