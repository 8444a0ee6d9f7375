package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid(), "category %s", c)
	}
	assert.False(t, Category("bogus").Valid())
	assert.False(t, Category("").Valid())
}

func TestCategoryRestricted(t *testing.T) {
	assert.True(t, CategoryStaff.Restricted())
	assert.True(t, CategoryGang.Restricted())
	assert.True(t, CategoryBanAppeal.Restricted())
	assert.False(t, CategoryGeneral.Restricted())
	assert.False(t, CategoryTebex.Restricted())
}

func TestActionSet(t *testing.T) {
	set := NewActionSet(ActionClaim, ActionClose)
	assert.True(t, set.Has(ActionClaim))
	assert.True(t, set.Has(ActionClose))
	assert.False(t, set.Has(ActionDelete))
	assert.False(t, ActionSet(nil).Has(ActionClaim))
}
