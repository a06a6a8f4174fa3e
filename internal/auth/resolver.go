package auth

import (
	"context"
	"sort"
)

// CenterResolver computes which centers a user holds any role in. It is
// used at token issuance to auto-select a center and at explicit
// set-center time to validate the requested one.
type CenterResolver struct {
	store Store
}

func NewCenterResolver(store Store) *CenterResolver {
	return &CenterResolver{store: store}
}

// CentersForUser returns the deduplicated, sorted center ids from the
// user's role assignments.
func (r *CenterResolver) CentersForUser(ctx context.Context, userID string) ([]string, error) {
	assignments, err := r.store.AssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return distinctCenters(assignments), nil
}

// HasUniqueCenter reports whether the user holds roles in exactly one
// distinct center.
func (r *CenterResolver) HasUniqueCenter(ctx context.Context, userID string) (bool, error) {
	centers, err := r.CentersForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(centers) == 1, nil
}

// UniqueCenter returns the single center the user holds roles in, or nil
// when the user has zero or more than one distinct center.
func (r *CenterResolver) UniqueCenter(ctx context.Context, userID string) (*string, error) {
	assignments, err := r.store.AssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uniqueCenter(assignments), nil
}

func distinctCenters(assignments []RoleAssignment) []string {
	seen := make(map[string]struct{}, len(assignments))
	var centers []string
	for _, a := range assignments {
		if a.CenterID == "" {
			continue
		}
		if _, ok := seen[a.CenterID]; ok {
			continue
		}
		seen[a.CenterID] = struct{}{}
		centers = append(centers, a.CenterID)
	}
	sort.Strings(centers)
	return centers
}

func uniqueCenter(assignments []RoleAssignment) *string {
	centers := distinctCenters(assignments)
	if len(centers) != 1 {
		return nil
	}
	return &centers[0]
}

// AccessAggregator computes the set of access rights a user is granted in
// a center. The result always reflects current role definitions.
type AccessAggregator struct {
	store Store
}

func NewAccessAggregator(store Store) *AccessAggregator {
	return &AccessAggregator{store: store}
}

// AccessRightsFor returns the deduplicated, sorted union of access-right
// lists across every role the user holds in the given center. A nil
// center yields an empty list without touching the store.
func (a *AccessAggregator) AccessRightsFor(ctx context.Context, userID string, centerID *string) ([]string, error) {
	if centerID == nil {
		return []string{}, nil
	}
	rights, err := a.store.AccessRightsForUserCenter(ctx, userID, *centerID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(rights))
	out := make([]string, 0, len(rights))
	for _, right := range rights {
		if right == "" {
			continue
		}
		if _, ok := seen[right]; ok {
			continue
		}
		seen[right] = struct{}{}
		out = append(out, right)
	}
	sort.Strings(out)
	return out, nil
}
