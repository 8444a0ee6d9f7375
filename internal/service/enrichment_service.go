package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/domain"
	"github.com/Banditcantcode/Banditbot/internal/persistence"
	"github.com/Banditcantcode/Banditbot/internal/repository"
)

// EnrichmentStatus reports how a player lookup went. Lookups never fail the
// operation that requested them; the status tells the caller which welcome
// variant to render.
type EnrichmentStatus string

const (
	EnrichmentFound   EnrichmentStatus = "found"
	EnrichmentMissing EnrichmentStatus = "missing"
	EnrichmentFailed  EnrichmentStatus = "failed"
)

// EnrichmentResult carries the optional game-database context for a ticket
// owner.
type EnrichmentResult struct {
	Status     EnrichmentStatus      `json:"status"`
	Account    *domain.PlayerAccount `json:"account,omitempty"`
	Characters []domain.Character    `json:"characters,omitempty"`
}

// Enricher looks up player context for a Discord user id.
type Enricher interface {
	Lookup(ctx context.Context, discordUserID string) EnrichmentResult
}

// EnrichmentService resolves ticket owners against the game database,
// caching results in Redis so repeated ticket churn does not hammer the
// game server's DB.
type EnrichmentService struct {
	players  repository.PlayerRepository
	cache    *persistence.Redis
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewEnrichmentService constructs the service. cache may be nil.
func NewEnrichmentService(players repository.PlayerRepository, cache *persistence.Redis, cacheTTL time.Duration, logger *zap.Logger) *EnrichmentService {
	return &EnrichmentService{
		players:  players,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Lookup fetches the player account and character list for a Discord user.
// All failures are logged and collapsed into EnrichmentFailed; absence of a
// record is EnrichmentMissing.
func (s *EnrichmentService) Lookup(ctx context.Context, discordUserID string) EnrichmentResult {
	if cached, ok := s.fromCache(ctx, discordUserID); ok {
		return cached
	}

	account, err := s.players.AccountByDiscord(ctx, discordUserID)
	if err != nil {
		s.logger.Warn("player account lookup failed",
			zap.String("discord_id", discordUserID), zap.Error(err))
		return EnrichmentResult{Status: EnrichmentFailed}
	}
	if account == nil {
		result := EnrichmentResult{Status: EnrichmentMissing}
		s.toCache(ctx, discordUserID, result)
		return result
	}

	characters, err := s.players.Characters(ctx, account.License, account.License2, account.UserID)
	if err != nil {
		// The account block alone is still worth showing.
		s.logger.Warn("character lookup failed",
			zap.String("discord_id", discordUserID), zap.Error(err))
		characters = nil
	}

	result := EnrichmentResult{
		Status:     EnrichmentFound,
		Account:    account,
		Characters: characters,
	}
	s.toCache(ctx, discordUserID, result)
	return result
}

func (s *EnrichmentService) fromCache(ctx context.Context, discordUserID string) (EnrichmentResult, bool) {
	if s.cache == nil || s.cache.Client == nil {
		return EnrichmentResult{}, false
	}
	raw, err := s.cache.Client.Get(ctx, enrichmentKey(discordUserID)).Bytes()
	if err != nil {
		return EnrichmentResult{}, false
	}
	var result EnrichmentResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return EnrichmentResult{}, false
	}
	return result, true
}

func (s *EnrichmentService) toCache(ctx context.Context, discordUserID string, result EnrichmentResult) {
	if s.cache == nil || s.cache.Client == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Client.Set(ctx, enrichmentKey(discordUserID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Debug("enrichment cache write failed", zap.Error(err))
	}
}

func enrichmentKey(discordUserID string) string {
	return "enrich:discord:" + discordUserID
}
