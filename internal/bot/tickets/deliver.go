package tickets

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/Banditcantcode/Banditbot/internal/config"
	"github.com/Banditcantcode/Banditbot/internal/service"
)

// Deliverer posts exported transcripts to the logs channel and DMs the
// ticket owner a copy.
type Deliverer struct {
	session *discordgo.Session
	cfg     *config.Config
}

var _ service.Deliverer = (*Deliverer)(nil)

func NewDeliverer(session *discordgo.Session, cfg *config.Config) *Deliverer {
	return &Deliverer{session: session, cfg: cfg}
}

func (d *Deliverer) DeliverToLogs(ctx context.Context, artifact *service.Artifact, meta service.DeliveryMeta) error {
	logsID := d.cfg.Tickets.LogsChannelID
	if logsID == "" {
		return fmt.Errorf("logs channel not configured")
	}
	_, err := d.session.ChannelMessageSendComplex(logsID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{logEmbed(meta)},
		Files:  []*discordgo.File{artifactFile(artifact)},
	}, discordgo.WithContext(ctx))
	return err
}

// DeliverToOwner DMs the transcript. Failure is expected when the owner has
// DMs disabled or has left the guild; the pipeline absorbs it.
func (d *Deliverer) DeliverToOwner(ctx context.Context, ownerID string, artifact *service.Artifact, meta service.DeliveryMeta) error {
	dm, err := d.session.UserChannelCreate(ownerID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open DM channel: %w", err)
	}
	verb := "closed"
	if meta.Kind == service.TranscriptOnDelete {
		verb = "deleted"
	}
	_, err = d.session.ChannelMessageSendComplex(dm.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Your ticket `%s` was %s. A transcript is attached.", meta.TicketID, verb),
		Files:   []*discordgo.File{artifactFile(artifact)},
	}, discordgo.WithContext(ctx))
	return err
}

func logEmbed(meta service.DeliveryMeta) *discordgo.MessageEmbed {
	title := "Ticket Closed"
	if meta.Kind == service.TranscriptOnDelete {
		title = "Ticket Deleted"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Ticket", Value: meta.TicketID, Inline: true},
		{Name: "Channel", Value: orDash(meta.ChannelName), Inline: true},
		{Name: "By", Value: fmt.Sprintf("<@%s>", meta.ActorID), Inline: true},
	}
	if meta.DownloadURL != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Download",
			Value: fmt.Sprintf("[transcript](%s)", meta.DownloadURL),
		})
	}
	return &discordgo.MessageEmbed{
		Title:  title,
		Color:  colorClosed,
		Fields: fields,
	}
}

func artifactFile(artifact *service.Artifact) *discordgo.File {
	return &discordgo.File{
		Name:        artifact.FileName,
		ContentType: "text/html",
		Reader:      bytes.NewReader(artifact.Body),
	}
}
