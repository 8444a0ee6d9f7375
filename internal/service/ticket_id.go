package service

import (
	"crypto/rand"
	"regexp"
	"strings"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

const ticketIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateTicketID returns a fresh 6-character ticket identity drawn from
// {A-Z,0-9}. The space is large enough that collisions are handled by a
// retry at insert time rather than coordination here.
func GenerateTicketID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = ticketIDAlphabet[int(b)%len(ticketIDAlphabet)]
	}
	return string(buf)
}

var channelNameStrip = regexp.MustCompile(`[^a-z0-9-]`)

// ChannelName builds the ticket channel name: category, username and ticket
// id, lowercased and reduced to [a-z0-9-], capped at Discord's 100-char
// limit.
func ChannelName(category domain.Category, username, ticketID string) string {
	name := strings.ToLower(string(category) + "-" + username + "-" + ticketID)
	name = channelNameStrip.ReplaceAllString(name, "")
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

var mentionTrim = strings.NewReplacer("<@!", "", "<@", "", ">", "")

// ParseUserRef normalizes a raw numeric id or a mention-style reference
// (<@id>, <@!id>) to the bare id. Returns "" when the result is not
// numeric.
func ParseUserRef(ref string) string {
	id := strings.TrimSpace(mentionTrim.Replace(strings.TrimSpace(ref)))
	if id == "" {
		return ""
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return id
}
