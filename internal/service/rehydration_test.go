package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

func TestRehydrate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, creator, domain.CategoryGeneral)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, Actor{ID: "owner-2", Username: "other"}, domain.CategoryTebex)
	require.NoError(t, err)

	// One channel vanished while the process was down.
	f.gateway.mu.Lock()
	delete(f.gateway.channelNames, second.ChannelID)
	f.gateway.mu.Unlock()

	report, err := f.svc.Rehydrate(ctx)
	require.NoError(t, err)

	assert.True(t, report.PromptPosted)
	assert.Equal(t, "prompt-1", report.PromptMessageID)
	assert.Equal(t, 2, report.OpenTickets)
	assert.Equal(t, []string{second.ID}, report.MissingChannels)
	_ = first

	// Running again re-binds the existing prompt instead of posting a new
	// one, and nothing else changes.
	report, err = f.svc.Rehydrate(ctx)
	require.NoError(t, err)
	assert.False(t, report.PromptPosted)
	assert.Equal(t, 1, f.gateway.promptPosts)
	assert.Equal(t, 2, report.OpenTickets)
}

func TestRehydrateNoOpenTickets(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Rehydrate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.OpenTickets)
	assert.Empty(t, report.MissingChannels)
	assert.True(t, report.PromptPosted)
}
