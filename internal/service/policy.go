package service

import (
	"strings"

	"github.com/iliyamo/team-presence/internal/model"
)

// Actor is the authenticated user on whose behalf an operation runs.
type Actor struct {
	ID    uint64
	Role  model.Role
	Group model.ResourceGroup
}

// ActorFromUser builds the Actor for a loaded user row.
func ActorFromUser(u model.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, Group: u.ResourceGroup}
}

// Policy decides which actors hold elevated validation rights.
// Administrators are always elevated; the resource groups listed in
// the policy are elevated as well.
type Policy struct {
	elevated map[model.ResourceGroup]bool
}

// DefaultElevatedGroups are the senior groups that may validate
// check-ins without a validated check-in of their own.
var DefaultElevatedGroups = []model.ResourceGroup{model.GroupHead, model.GroupLead}

// NewPolicy returns a Policy that elevates the given groups.
func NewPolicy(groups ...model.ResourceGroup) Policy {
	p := Policy{elevated: make(map[model.ResourceGroup]bool, len(groups))}
	for _, g := range groups {
		p.elevated[g] = true
	}
	return p
}

// ParseGroups reads a comma separated group list such as "head,lead".
// Unknown names are ignored.
func ParseGroups(s string) []model.ResourceGroup {
	var out []model.ResourceGroup
	for _, part := range strings.Split(s, ",") {
		g := model.ResourceGroup(strings.ToLower(strings.TrimSpace(part)))
		if g.Valid() {
			out = append(out, g)
		}
	}
	return out
}

// IsElevated reports whether a may validate check-ins unconditionally.
func (p Policy) IsElevated(a Actor) bool {
	return a.Role == model.RoleAdmin || p.elevated[a.Group]
}
