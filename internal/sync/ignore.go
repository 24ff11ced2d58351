package sync

import (
	"strings"

	"github.com/vanhieuu/mattermost-mobile/internal/models"
)

const systemMessagePrefix = "system_"

// IsSystemMessage reports whether the post was generated by the server
// (joins, leaves, header changes) rather than typed by a user.
func IsSystemMessage(p *models.Post) bool {
	return strings.HasPrefix(p.Type, systemMessagePrefix)
}

// IsFromWebhook reports whether the post was created by an integration
// posting on a user's behalf.
func IsFromWebhook(p *models.Post) bool {
	v, ok := p.Props["from_webhook"]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s == "true"
}

// ShouldIgnorePost is the unread-suppression policy: system messages about
// the current user's own actions never count toward unread state.
func ShouldIgnorePost(p *models.Post, currentUserID string) bool {
	return IsSystemMessage(p) && p.UserID == currentUserID
}
