// Package authz evaluates the ticket authorization policy. The policy is
// pure configuration; evaluation is a pure function of the ticket category,
// the actor's role set, creator-ship and the ticket status.
package authz

import (
	"github.com/Banditcantcode/Banditbot/internal/config"
	"github.com/Banditcantcode/Banditbot/internal/domain"
)

// Policy holds the immutable role configuration built once at startup.
//
// Restricted categories (staff, gang, ban_appeal) are gated by a
// category-specific role plus the senior/management escalation roles. Every
// other category falls back to the single generic staff role. Creators may
// always close their own ticket; they may delete it only in the default
// category group and only once it is closed. Creators never claim, rename
// or add users.
type Policy struct {
	roles config.RolesConfig
}

// NewPolicy builds a policy from role configuration.
func NewPolicy(roles config.RolesConfig) Policy {
	return Policy{roles: roles}
}

// PermittedActions returns the set of actions the actor may take on a
// ticket of the given category and status. No I/O, no hidden state.
func (p Policy) PermittedActions(category domain.Category, actorRoleIDs []string, isCreator bool, status domain.TicketStatus) domain.ActionSet {
	have := make(map[string]struct{}, len(actorRoleIDs))
	for _, id := range actorRoleIDs {
		if id != "" {
			have[id] = struct{}{}
		}
	}

	escalated := p.matches(have, p.roles.Senior) || p.matches(have, p.roles.Management)
	permitted := domain.ActionSet{}

	if category.Restricted() {
		elevated := escalated || p.matches(have, p.categoryRole(category))
		if elevated {
			permitted[domain.ActionClaim] = struct{}{}
			permitted[domain.ActionAddUser] = struct{}{}
			permitted[domain.ActionRename] = struct{}{}
			permitted[domain.ActionClose] = struct{}{}
			permitted[domain.ActionDelete] = struct{}{}
		}
		if isCreator {
			permitted[domain.ActionClose] = struct{}{}
		}
		return permitted
	}

	if p.matches(have, p.roles.Staff) {
		permitted[domain.ActionClaim] = struct{}{}
		permitted[domain.ActionAddUser] = struct{}{}
		permitted[domain.ActionRename] = struct{}{}
		permitted[domain.ActionClose] = struct{}{}
		permitted[domain.ActionDelete] = struct{}{}
	}
	if isCreator {
		permitted[domain.ActionClose] = struct{}{}
		if status == domain.TicketStatusClosed {
			permitted[domain.ActionDelete] = struct{}{}
		}
	}
	return permitted
}

// Allows reports whether a single action is permitted.
func (p Policy) Allows(action domain.Action, category domain.Category, actorRoleIDs []string, isCreator bool, status domain.TicketStatus) bool {
	return p.PermittedActions(category, actorRoleIDs, isCreator, status).Has(action)
}

func (p Policy) categoryRole(category domain.Category) string {
	switch category {
	case domain.CategoryStaff:
		return p.roles.StaffReport
	case domain.CategoryGang:
		return p.roles.Gang
	case domain.CategoryBanAppeal:
		return p.roles.BanAppeal
	}
	return ""
}

// matches reports whether the configured role id is present in the actor's
// role set. An unconfigured id ("" or "0") never matches.
func (p Policy) matches(have map[string]struct{}, configured string) bool {
	if configured == "" || configured == "0" {
		return false
	}
	_, ok := have[configured]
	return ok
}
