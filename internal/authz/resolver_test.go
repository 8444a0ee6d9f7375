package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Banditcantcode/Banditbot/internal/config"
	"github.com/Banditcantcode/Banditbot/internal/domain"
)

var testRoles = config.RolesConfig{
	Staff:       "100",
	Senior:      "200",
	Management:  "300",
	Gang:        "400",
	BanAppeal:   "500",
	StaffReport: "600",
}

func all() []domain.Action {
	return []domain.Action{
		domain.ActionClaim,
		domain.ActionAddUser,
		domain.ActionRename,
		domain.ActionClose,
		domain.ActionDelete,
	}
}

func TestPermittedActions(t *testing.T) {
	policy := NewPolicy(testRoles)

	tests := []struct {
		name      string
		category  domain.Category
		roleIDs   []string
		isCreator bool
		status    domain.TicketStatus
		want      []domain.Action
	}{
		{
			name:     "staff in general ticket gets everything",
			category: domain.CategoryGeneral,
			roleIDs:  []string{"100"},
			status:   domain.TicketStatusOpen,
			want:     all(),
		},
		{
			name:     "staff role does not reach gang tickets",
			category: domain.CategoryGang,
			roleIDs:  []string{"100"},
			status:   domain.TicketStatusOpen,
			want:     nil,
		},
		{
			name:     "gang role handles gang tickets",
			category: domain.CategoryGang,
			roleIDs:  []string{"400"},
			status:   domain.TicketStatusOpen,
			want:     all(),
		},
		{
			name:     "senior escalates into staff reports",
			category: domain.CategoryStaff,
			roleIDs:  []string{"200"},
			status:   domain.TicketStatusOpen,
			want:     all(),
		},
		{
			name:     "management escalates into ban appeals",
			category: domain.CategoryBanAppeal,
			roleIDs:  []string{"300"},
			status:   domain.TicketStatusOpen,
			want:     all(),
		},
		{
			name:     "staff report role does not reach ban appeals",
			category: domain.CategoryBanAppeal,
			roleIDs:  []string{"600"},
			status:   domain.TicketStatusOpen,
			want:     nil,
		},
		{
			name:      "creator may close an open general ticket",
			category:  domain.CategoryGeneral,
			isCreator: true,
			status:    domain.TicketStatusOpen,
			want:      []domain.Action{domain.ActionClose},
		},
		{
			name:      "creator may delete a closed general ticket",
			category:  domain.CategoryTebex,
			isCreator: true,
			status:    domain.TicketStatusClosed,
			want:      []domain.Action{domain.ActionClose, domain.ActionDelete},
		},
		{
			name:      "creator may not delete a closed restricted ticket",
			category:  domain.CategoryBanAppeal,
			isCreator: true,
			status:    domain.TicketStatusClosed,
			want:      []domain.Action{domain.ActionClose},
		},
		{
			name:      "creator never claims",
			category:  domain.CategoryGeneral,
			isCreator: true,
			status:    domain.TicketStatusOpen,
			want:      []domain.Action{domain.ActionClose},
		},
		{
			name:     "no roles no access",
			category: domain.CategoryGeneral,
			roleIDs:  []string{"999"},
			status:   domain.TicketStatusOpen,
			want:     nil,
		},
		{
			name:      "creator with gang role in own gang ticket",
			category:  domain.CategoryGang,
			roleIDs:   []string{"400"},
			isCreator: true,
			status:    domain.TicketStatusOpen,
			want:      all(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.PermittedActions(tt.category, tt.roleIDs, tt.isCreator, tt.status)
			assert.Len(t, got, len(tt.want))
			for _, action := range tt.want {
				assert.True(t, got.Has(action), "expected %s to be permitted", action)
			}
		})
	}
}

// A role configured as empty or "0" must never match, even against an actor
// who somehow carries those literal values.
func TestUnconfiguredRolesNeverMatch(t *testing.T) {
	policy := NewPolicy(config.RolesConfig{Staff: "", Gang: "0"})

	got := policy.PermittedActions(domain.CategoryGeneral, []string{"", "0"}, false, domain.TicketStatusOpen)
	assert.Empty(t, got)

	got = policy.PermittedActions(domain.CategoryGang, []string{"0"}, false, domain.TicketStatusOpen)
	assert.Empty(t, got)
}

func TestAllows(t *testing.T) {
	policy := NewPolicy(testRoles)

	assert.True(t, policy.Allows(domain.ActionClaim, domain.CategoryGeneral, []string{"100"}, false, domain.TicketStatusOpen))
	assert.False(t, policy.Allows(domain.ActionClaim, domain.CategoryGeneral, nil, true, domain.TicketStatusOpen))
	assert.False(t, policy.Allows(domain.ActionDelete, domain.CategoryGeneral, nil, true, domain.TicketStatusOpen))
	assert.True(t, policy.Allows(domain.ActionDelete, domain.CategoryGeneral, nil, true, domain.TicketStatusClosed))
}
