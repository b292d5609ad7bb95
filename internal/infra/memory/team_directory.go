package memory

import (
	"context"
	"sync"
)

// TeamDirectory is a static team-membership table.
type TeamDirectory struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{}
}

func NewTeamDirectory() *TeamDirectory {
	return &TeamDirectory{members: make(map[string]map[string]struct{})}
}

// AddMember registers userID as a member of teamID.
func (d *TeamDirectory) AddMember(teamID, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.members[teamID] == nil {
		d.members[teamID] = make(map[string]struct{})
	}
	d.members[teamID][userID] = struct{}{}
}

func (d *TeamDirectory) IsMember(_ context.Context, teamID, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.members[teamID][userID]
	return ok, nil
}
