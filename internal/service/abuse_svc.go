package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/flagwatch/flagwatch-go/internal/model"
	"github.com/flagwatch/flagwatch-go/internal/repository"
)

// AbuseStore is the listing/loading surface the service needs from the report
// repository.
type AbuseStore interface {
	ListAbuses(ctx context.Context, opts repository.ListAbusesOptions, blockedIDs []int64) ([]repository.AbuseWithStats, int64, error)
	LoadByID(ctx context.Context, id int64, videoID *int64, videoUUID *uuid.UUID) (*repository.AbuseWithStats, error)
}

// BlocklistStore supplies the blocked-account-id set for an operator scope and
// an optional viewer scope.
type BlocklistStore interface {
	BlockedAccountIDs(ctx context.Context, operatorAccountID int64, userAccountID *int64) ([]int64, error)
}

type AbuseService struct {
	store     AbuseStore
	blocklist BlocklistStore
	cache     *CacheService
}

func NewAbuseService(store AbuseStore, blocklist BlocklistStore, cache *CacheService) *AbuseService {
	return &AbuseService{store: store, blocklist: blocklist, cache: cache}
}

// List runs one paginated listing call: resolve the blocked-account set
// (cache-aside), execute the composed query, and shape each row into its API
// summary with the attached statistics.
func (s *AbuseService) List(ctx context.Context, opts repository.ListAbusesOptions) (*model.AbuseListResult, error) {
	blocked, err := s.blockedAccountIDs(ctx, opts.OperatorAccountID, opts.UserAccountID)
	if err != nil {
		return nil, err
	}

	items, total, err := s.store.ListAbuses(ctx, opts, blocked)
	if err != nil {
		return nil, err
	}

	data := make([]*model.VideoAbuseResponse, 0, len(items))
	for i := range items {
		resp, err := toResponse(&items[i].Abuse, items[i].Stats)
		if err != nil {
			return nil, err
		}
		data = append(data, resp)
	}

	return &model.AbuseListResult{Total: total, Data: data}, nil
}

// Load fetches a single report and its statistics. The optional video filters
// pin the match to a specific live video id or snapshot uuid.
func (s *AbuseService) Load(ctx context.Context, id int64, videoID *int64, videoUUID *uuid.UUID) (*model.VideoAbuseResponse, error) {
	item, err := s.store.LoadByID(ctx, id, videoID, videoUUID)
	if err != nil {
		return nil, err
	}
	return toResponse(&item.Abuse, item.Stats)
}

// FederationNotice builds the outward Flag activity for a report. Reports
// against deleted videos surface model.ErrVideoDeleted; callers decide whether
// to drop the activity.
func (s *AbuseService) FederationNotice(abuse *model.VideoAbuse) (*model.FlagActivity, error) {
	return abuse.ToFlagActivity()
}

// blockedAccountIDs resolves the blocklist set, cache-aside. Cache failures
// fall through to the store; they never fail a listing.
func (s *AbuseService) blockedAccountIDs(ctx context.Context, operatorAccountID int64, userAccountID *int64) ([]int64, error) {
	if s.cache != nil {
		ids, ok, err := s.cache.GetBlocklist(ctx, operatorAccountID, userAccountID)
		if err != nil {
			log.Printf("cache: blocklist get error: %v", err)
		} else if ok {
			return ids, nil
		}
	}

	ids, err := s.blocklist.BlockedAccountIDs(ctx, operatorAccountID, userAccountID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBlocklist(ctx, operatorAccountID, userAccountID, ids); err != nil {
			log.Printf("cache: blocklist set error: %v", err)
		}
	}
	return ids, nil
}

// toResponse shapes a report and its aggregates into the API summary. A report
// with neither a live video nor a snapshot surfaces ErrNoVideoData instead of
// rendering a partially-empty video object.
func toResponse(abuse *model.VideoAbuse, stats model.AbuseStats) (*model.VideoAbuseResponse, error) {
	video, err := abuse.DisplayVideo()
	if err != nil {
		return nil, fmt.Errorf("abuse %d: %w", abuse.ID, err)
	}

	return &model.VideoAbuseResponse{
		ID:                abuse.ID,
		Reason:            abuse.Reason,
		ReporterAccount:   abuse.ReporterAccount.Summary(),
		State:             model.StateInfo{ID: int(abuse.State), Label: abuse.State.Label()},
		ModerationComment: abuse.ModerationComment,
		Video:             video,
		CreatedAt:         abuse.CreatedAt,
		UpdatedAt:         abuse.UpdatedAt,
		AbuseStats:        stats,
	}, nil
}
