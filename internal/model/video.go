package model

import "github.com/google/uuid"

// VideoChannel owns videos and belongs to an account.
type VideoChannel struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AccountID int64  `json:"accountId"`
}

// VideoChannelSummary is the API shape embedded in video display objects.
type VideoChannelSummary struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
}

// Summary returns the API summary for the channel, or nil when absent.
func (c *VideoChannel) Summary() *VideoChannelSummary {
	if c == nil {
		return nil
	}
	return &VideoChannelSummary{ID: c.ID, DisplayName: c.Name}
}

// Video is a live (not yet deleted) video row.
type Video struct {
	ID            int64     `json:"id"`
	UUID          uuid.UUID `json:"uuid"`
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	NSFW          bool      `json:"nsfw"`
	ThumbnailPath *string   `json:"thumbnailPath,omitempty"`
	BlacklistID   *int64    `json:"-"`
	ChannelID     int64     `json:"channelId"`
}

// Blacklisted reports whether the video carries a blacklist entry.
func (v *Video) Blacklisted() bool {
	return v != nil && v.BlacklistID != nil
}

// VideoDetails is the immutable snapshot of a video's identity and ownership,
// captured into the report when the video is deleted. Its JSON shape is also
// the stored shape of the deleted_video column, so the field tags are contract.
type VideoDetails struct {
	ID      int64               `json:"id"`
	UUID    string              `json:"uuid"`
	Name    string              `json:"name"`
	NSFW    bool                `json:"nsfw"`
	Channel VideoChannelDetails `json:"channel"`
}

// VideoChannelDetails is the nested channel object inside a snapshot.
type VideoChannelDetails struct {
	ID           int64          `json:"id"`
	DisplayName  string         `json:"displayName"`
	OwnerAccount AccountDetails `json:"ownerAccount"`
}

// AccountDetails is the nested owner-account object inside a snapshot.
type AccountDetails struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
}

// NewVideoDetails captures the snapshot written into reports when their target
// video is deleted.
func NewVideoDetails(v *Video, channel *VideoChannel, owner *Account) *VideoDetails {
	details := &VideoDetails{
		ID:   v.ID,
		UUID: v.UUID.String(),
		Name: v.Name,
		NSFW: v.NSFW,
	}
	if channel != nil {
		details.Channel = VideoChannelDetails{ID: channel.ID, DisplayName: channel.Name}
	}
	if owner != nil {
		details.Channel.OwnerAccount = AccountDetails{ID: owner.ID, DisplayName: owner.Name}
	}
	return details
}
