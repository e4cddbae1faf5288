package projections

import (
	"context"

	"feeminton/internal/domain/group"
)

// GroupsResult carries the query result.
type GroupsResult struct {
	Groups []group.Group
}

// GroupsDeps holds dependencies for QueryGroups.
type GroupsDeps struct {
	Groups GroupSource
}

// QueryGroups lists groups in server order.
// PRE: none
// POST: Groups is non-nil
func QueryGroups(ctx context.Context, deps GroupsDeps) (GroupsResult, error) {
	groups, err := deps.Groups.GetGroups(ctx)
	if err != nil {
		return GroupsResult{}, err
	}
	if groups == nil {
		groups = []group.Group{}
	}
	return GroupsResult{Groups: groups}, nil
}
