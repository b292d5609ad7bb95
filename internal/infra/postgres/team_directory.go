package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// TeamDirectory answers membership checks from the team_members table.
type TeamDirectory struct {
	db *bun.DB
}

func NewTeamDirectory(db *bun.DB) *TeamDirectory {
	return &TeamDirectory{db: db}
}

func (d *TeamDirectory) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	ok, err := d.db.NewSelect().
		Model((*teamMemberModel)(nil)).
		Where("tm.team_id = ?", teamID).
		Where("tm.user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

// AddMember records a membership; adding twice is a no-op.
func (d *TeamDirectory) AddMember(ctx context.Context, teamID, userID string) error {
	_, err := d.db.NewInsert().
		Model(&teamMemberModel{TeamID: teamID, UserID: userID}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	return err
}
