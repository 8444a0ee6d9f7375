package service

import (
	"context"

	"go.uber.org/zap"
)

// RehydrationReport summarizes what startup reconciliation found.
type RehydrationReport struct {
	PromptMessageID string
	PromptPosted    bool
	OpenTickets     int
	MissingChannels []string
}

// Rehydrate reconciles the interactive surface with persisted state after a
// restart: re-binds (or posts) the category-selection prompt and walks every
// open ticket so its action buttons resolve again. Component custom ids
// carry the ticket identity, so "re-registering a handler" is only a matter
// of the record existing; tickets whose channel disappeared while the
// process was down are reported, not repaired.
//
// Running this twice is safe: the prompt is re-bound in place and the open
// ticket scan has no side effects beyond logging.
func (s *TicketService) Rehydrate(ctx context.Context) (RehydrationReport, error) {
	report := RehydrationReport{}

	if s.prompts != nil {
		messageID, posted, err := s.prompts.EnsurePrompt(ctx)
		if err != nil {
			return report, err
		}
		report.PromptMessageID = messageID
		report.PromptPosted = posted
		if posted {
			s.logger.Info("posted fresh ticket prompt", zap.String("message_id", messageID))
		} else {
			s.logger.Info("re-bound existing ticket prompt", zap.String("message_id", messageID))
		}
	}

	open, err := s.tickets.ListOpen(ctx)
	if err != nil {
		return report, err
	}
	report.OpenTickets = len(open)

	for _, ticket := range open {
		if _, err := s.gateway.ChannelName(ctx, ticket.ChannelID); err != nil {
			report.MissingChannels = append(report.MissingChannels, ticket.ID)
			s.logger.Warn("open ticket has no channel",
				zap.String("ticket_id", ticket.ID),
				zap.String("channel_id", ticket.ChannelID))
		}
	}

	s.logger.Info("ticket surface rehydrated",
		zap.Int("open_tickets", report.OpenTickets),
		zap.Int("missing_channels", len(report.MissingChannels)))
	return report, nil
}
