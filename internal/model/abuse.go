package model

import (
	"errors"
	"fmt"
	"time"
)

// AbuseState is the moderation state of a report.
type AbuseState int

const (
	AbuseStatePending  AbuseState = iota + 1 // 1
	AbuseStateRejected                       // 2
	AbuseStateAccepted                       // 3
)

var abuseStateLabels = map[AbuseState]string{
	AbuseStatePending:  "Pending",
	AbuseStateRejected: "Rejected",
	AbuseStateAccepted: "Accepted",
}

// Label returns the display label for the state. Unknown codes resolve to
// "Unknown" instead of failing.
func (s AbuseState) Label() string {
	if label, ok := abuseStateLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// Valid reports whether the state is one of the known enum values.
func (s AbuseState) Valid() bool {
	_, ok := abuseStateLabels[s]
	return ok
}

// Field length limits matching database schema constraints.
const (
	AbuseReasonMinLen            = 2
	AbuseReasonMaxLen            = 3000
	AbuseModerationCommentMaxLen = 3000
)

var (
	// ErrNoVideoData marks a report with neither a live video reference nor a
	// deletion snapshot. Such a report cannot be displayed; upstream deletion
	// logic has a gap and callers must surface it rather than render nulls.
	ErrNoVideoData = errors.New("abuse report has neither a live video nor a deleted video snapshot")

	// ErrVideoDeleted is returned when an operation needs the live video (such
	// as building a federation Flag activity) but only a snapshot remains.
	ErrVideoDeleted = errors.New("abuse report targets a deleted video")
)

// ValidationError reports a write-time constraint violation on a report field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// VideoAbuse is a moderation complaint filed against a video.
//
// Once the target video is deleted, VideoID/Video are nulled and DeletedVideo
// holds the snapshot. The storage layer does not enforce that exactly one of
// the two is set; display logic goes through DisplayVideo instead of reading
// the fields directly.
type VideoAbuse struct {
	ID                int64
	Reason            string
	State             AbuseState
	ModerationComment *string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Nil once the reporting account has been removed; the report is kept.
	ReporterAccountID *int64
	ReporterAccount   *Account

	VideoID      *int64
	Video        *Video
	VideoChannel *VideoChannel
	DeletedVideo *VideoDetails
}

// Validate checks the write-time constraints on reason, state and moderation
// comment. Returns a *ValidationError on the first violation.
func (a *VideoAbuse) Validate() error {
	if l := len(a.Reason); l < AbuseReasonMinLen || l > AbuseReasonMaxLen {
		return &ValidationError{
			Field:   "reason",
			Message: fmt.Sprintf("must be between %d and %d characters", AbuseReasonMinLen, AbuseReasonMaxLen),
		}
	}
	if !a.State.Valid() {
		return &ValidationError{
			Field:   "state",
			Message: fmt.Sprintf("unknown state code %d", int(a.State)),
		}
	}
	if a.ModerationComment != nil && len(*a.ModerationComment) > AbuseModerationCommentMaxLen {
		return &ValidationError{
			Field:   "moderationComment",
			Message: fmt.Sprintf("must be at most %d characters", AbuseModerationCommentMaxLen),
		}
	}
	return nil
}

// DisplayVideo is the single accessor surface over the live-vs-snapshot
// variant of the reported video.
type DisplayVideo struct {
	ID            int64                `json:"id"`
	UUID          string               `json:"uuid"`
	Name          string               `json:"name"`
	NSFW          bool                 `json:"nsfw"`
	Deleted       bool                 `json:"deleted"`
	Blacklisted   bool                 `json:"blacklisted"`
	ThumbnailPath *string              `json:"thumbnailPath,omitempty"`
	Channel       *VideoChannelSummary `json:"channel,omitempty"`
}

// DisplayVideo resolves the reported video for display: the live row when it
// still exists, the deletion snapshot otherwise. Snapshots carry no thumbnail
// and no blacklist state. Returns ErrNoVideoData when the report has neither.
func (a *VideoAbuse) DisplayVideo() (*DisplayVideo, error) {
	switch {
	case a.Video != nil:
		return &DisplayVideo{
			ID:            a.Video.ID,
			UUID:          a.Video.UUID.String(),
			Name:          a.Video.Name,
			NSFW:          a.Video.NSFW,
			Deleted:       false,
			Blacklisted:   a.Video.Blacklisted(),
			ThumbnailPath: a.Video.ThumbnailPath,
			Channel:       a.VideoChannel.Summary(),
		}, nil
	case a.DeletedVideo != nil:
		return &DisplayVideo{
			ID:      a.DeletedVideo.ID,
			UUID:    a.DeletedVideo.UUID,
			Name:    a.DeletedVideo.Name,
			NSFW:    a.DeletedVideo.NSFW,
			Deleted: true,
			Channel: &VideoChannelSummary{
				ID:          a.DeletedVideo.Channel.ID,
				DisplayName: a.DeletedVideo.Channel.DisplayName,
			},
		}, nil
	default:
		return nil, ErrNoVideoData
	}
}

// FlagActivity is the outward federation notice for a report.
type FlagActivity struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Object  string `json:"object"`
}

// ToFlagActivity builds the federation Flag notice for the report. The notice
// references the live video URL, so a report whose video has been deleted
// returns ErrVideoDeleted.
func (a *VideoAbuse) ToFlagActivity() (*FlagActivity, error) {
	if a.Video == nil {
		return nil, ErrVideoDeleted
	}
	return &FlagActivity{
		Type:    "Flag",
		Content: a.Reason,
		Object:  a.Video.URL,
	}, nil
}

// AbuseStats are the read-time aggregates attached to each listed report.
// They default to 0 when no rows matched; they are never null in the output.
type AbuseStats struct {
	// Reports (across all reporters) against the same live video. 0 once the
	// video is deleted.
	CountReportsForVideo int `json:"count"`
	// 1-based rank of this report among reports against the same live video,
	// ordered by creation time. 0 once the video is deleted.
	NthReportForVideo int `json:"nth"`
	// Reports involving the reporting account, live and deleted populations
	// summed.
	CountReportsForReporter int `json:"countReportsForReporter"`
	// Distinct reports against content owned by the same account as this
	// report's target, live and deleted populations summed.
	CountReportsForReportee int `json:"countReportsForReportee"`
}

// StateInfo is the enumerated state with its display label.
type StateInfo struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// VideoAbuseResponse is the API summary for one listed report.
type VideoAbuseResponse struct {
	ID                int64           `json:"id"`
	Reason            string          `json:"reason"`
	ReporterAccount   *AccountSummary `json:"reporterAccount,omitempty"`
	State             StateInfo       `json:"state"`
	ModerationComment *string         `json:"moderationComment,omitempty"`
	Video             *DisplayVideo   `json:"video"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	AbuseStats
}

// AbuseListResult is the paginated listing payload. Total reflects the full
// filtered set size, not the page size.
type AbuseListResult struct {
	Total int64                 `json:"total"`
	Data  []*VideoAbuseResponse `json:"data"`
}
