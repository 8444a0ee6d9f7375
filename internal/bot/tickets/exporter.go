package tickets

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/Banditcantcode/Banditbot/internal/service"
)

// exportPageSize is the Discord API maximum per history request.
const exportPageSize = 100

// exportMaxMessages caps how much history a single transcript carries.
// Ticket channels are short-lived; anything past this is pathological.
const exportMaxMessages = 2000

// Exporter renders a ticket channel's full message history into a
// self-contained HTML artifact.
type Exporter struct {
	session *discordgo.Session
}

var _ service.Exporter = (*Exporter)(nil)

func NewExporter(session *discordgo.Session) *Exporter {
	return &Exporter{session: session}
}

// Export pages backwards through the channel history, then renders oldest
// first.
func (e *Exporter) Export(ctx context.Context, channelID, ticketID string) (*service.Artifact, error) {
	channelName := channelID
	if ch, err := e.session.Channel(channelID, discordgo.WithContext(ctx)); err == nil {
		channelName = ch.Name
	}

	var history []*discordgo.Message
	beforeID := ""
	for len(history) < exportMaxMessages {
		page, err := e.session.ChannelMessages(channelID, exportPageSize, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetch channel history: %w", err)
		}
		if len(page) == 0 {
			break
		}
		history = append(history, page...)
		beforeID = page[len(page)-1].ID
		if len(page) < exportPageSize {
			break
		}
	}

	// ChannelMessages returns newest first.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	body := renderTranscript(channelName, ticketID, history)
	return &service.Artifact{
		ID:       uuid.NewString(),
		TicketID: ticketID,
		FileName: fmt.Sprintf("transcript-%s.html", strings.ToLower(ticketID)),
		Body:     []byte(body),
	}, nil
}

func renderTranscript(channelName, ticketID string, messages []*discordgo.Message) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>Transcript %s</title>\n", html.EscapeString(ticketID))
	b.WriteString(`<style>
body { background: #313338; color: #dbdee1; font-family: sans-serif; margin: 0; padding: 16px; }
h1 { color: #f2f3f5; font-size: 18px; }
.msg { padding: 6px 0; border-bottom: 1px solid #3f4147; }
.author { color: #f2f3f5; font-weight: bold; }
.time { color: #949ba4; font-size: 11px; margin-left: 8px; }
.content { white-space: pre-wrap; }
.attachment, .embed { color: #00a8fc; font-size: 12px; }
</style>
</head>
<body>
`)
	fmt.Fprintf(&b, "<h1>#%s &mdash; ticket %s &mdash; %d messages</h1>\n",
		html.EscapeString(channelName), html.EscapeString(ticketID), len(messages))

	for _, msg := range messages {
		author := "unknown"
		if msg.Author != nil {
			author = msg.Author.Username
		}
		b.WriteString(`<div class="msg">`)
		fmt.Fprintf(&b, `<span class="author">%s</span><span class="time">%s</span>`,
			html.EscapeString(author),
			msg.Timestamp.UTC().Format(time.RFC3339))
		if msg.Content != "" {
			fmt.Fprintf(&b, `<div class="content">%s</div>`, html.EscapeString(msg.Content))
		}
		for _, att := range msg.Attachments {
			fmt.Fprintf(&b, `<div class="attachment">📎 %s</div>`, html.EscapeString(att.Filename))
		}
		for _, emb := range msg.Embeds {
			label := emb.Title
			if label == "" {
				label = emb.Description
			}
			if label != "" {
				fmt.Fprintf(&b, `<div class="embed">[embed] %s</div>`, html.EscapeString(label))
			}
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
