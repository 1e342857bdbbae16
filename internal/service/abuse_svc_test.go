package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flagwatch/flagwatch-go/internal/model"
	"github.com/flagwatch/flagwatch-go/internal/repository"
)

type fakeAbuseStore struct {
	items []repository.AbuseWithStats
	total int64
	err   error

	gotOpts    repository.ListAbusesOptions
	gotBlocked []int64
}

func (f *fakeAbuseStore) ListAbuses(ctx context.Context, opts repository.ListAbusesOptions, blockedIDs []int64) ([]repository.AbuseWithStats, int64, error) {
	f.gotOpts = opts
	f.gotBlocked = blockedIDs
	return f.items, f.total, f.err
}

func (f *fakeAbuseStore) LoadByID(ctx context.Context, id int64, videoID *int64, videoUUID *uuid.UUID) (*repository.AbuseWithStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &f.items[0], nil
}

type fakeBlocklistStore struct {
	ids   []int64
	err   error
	calls int
}

func (f *fakeBlocklistStore) BlockedAccountIDs(ctx context.Context, operatorAccountID int64, userAccountID *int64) ([]int64, error) {
	f.calls++
	return f.ids, f.err
}

func i64(n int64) *int64 { return &n }

func liveItem(id int64) repository.AbuseWithStats {
	return repository.AbuseWithStats{
		Abuse: model.VideoAbuse{
			ID:                id,
			Reason:            "spam upload",
			State:             model.AbuseStateAccepted,
			CreatedAt:         time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			ReporterAccountID: i64(7),
			ReporterAccount:   &model.Account{ID: 7, Name: "alice"},
			VideoID:           i64(100),
			Video: &model.Video{
				ID:        100,
				UUID:      uuid.MustParse("9f2a0df1-2b7c-4b61-9d5a-0f3f8c1a2b3c"),
				Name:      "some video",
				URL:       "https://example.com/videos/100",
				ChannelID: 5,
			},
			VideoChannel: &model.VideoChannel{ID: 5, Name: "main channel", AccountID: 9},
		},
		Stats: model.AbuseStats{
			CountReportsForVideo:    3,
			NthReportForVideo:       2,
			CountReportsForReporter: 4,
			CountReportsForReportee: 6,
		},
	}
}

func TestListShapesResponses(t *testing.T) {
	store := &fakeAbuseStore{items: []repository.AbuseWithStats{liveItem(42)}, total: 17}
	blocklist := &fakeBlocklistStore{ids: []int64{3, 9}}
	svc := NewAbuseService(store, blocklist, nil)

	result, err := svc.List(context.Background(), repository.ListAbusesOptions{
		Count:             20,
		OperatorAccountID: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Total != 17 {
		t.Errorf("total = %d, want 17", result.Total)
	}
	if len(result.Data) != 1 {
		t.Fatalf("got %d rows, want 1", len(result.Data))
	}

	r := result.Data[0]
	if r.ID != 42 || r.Reason != "spam upload" {
		t.Errorf("row = %+v", r)
	}
	if r.State.ID != 3 || r.State.Label != "Accepted" {
		t.Errorf("state = %+v", r.State)
	}
	if r.ReporterAccount == nil || r.ReporterAccount.DisplayName != "alice" {
		t.Errorf("reporter = %+v", r.ReporterAccount)
	}
	if r.Video == nil || r.Video.Deleted || r.Video.ID != 100 {
		t.Errorf("video = %+v", r.Video)
	}
	if r.CountReportsForVideo != 3 || r.NthReportForVideo != 2 ||
		r.CountReportsForReporter != 4 || r.CountReportsForReportee != 6 {
		t.Errorf("stats = %+v", r.AbuseStats)
	}

	if len(store.gotBlocked) != 2 || store.gotBlocked[0] != 3 {
		t.Errorf("blocked ids not passed to store: %v", store.gotBlocked)
	}
	if blocklist.calls != 1 {
		t.Errorf("blocklist fetched %d times, want 1", blocklist.calls)
	}
}

func TestListEmptyPage(t *testing.T) {
	store := &fakeAbuseStore{total: 0}
	svc := NewAbuseService(store, &fakeBlocklistStore{}, nil)

	result, err := svc.List(context.Background(), repository.ListAbusesOptions{Count: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("total = %d", result.Total)
	}
	if result.Data == nil || len(result.Data) != 0 {
		t.Errorf("data must be an empty slice, got %v", result.Data)
	}
}

func TestListIntegrityGap(t *testing.T) {
	// A row with neither live video nor snapshot must fail the listing, and
	// the sentinel must stay matchable through the wrap.
	item := liveItem(42)
	item.Abuse.VideoID = nil
	item.Abuse.Video = nil
	item.Abuse.VideoChannel = nil
	item.Abuse.DeletedVideo = nil

	store := &fakeAbuseStore{items: []repository.AbuseWithStats{item}, total: 1}
	svc := NewAbuseService(store, &fakeBlocklistStore{}, nil)

	_, err := svc.List(context.Background(), repository.ListAbusesOptions{Count: 20})
	if !errors.Is(err, model.ErrNoVideoData) {
		t.Fatalf("expected ErrNoVideoData, got %v", err)
	}
}

func TestListBlocklistError(t *testing.T) {
	wantErr := errors.New("blocklist query failed")
	store := &fakeAbuseStore{}
	svc := NewAbuseService(store, &fakeBlocklistStore{err: wantErr}, nil)

	_, err := svc.List(context.Background(), repository.ListAbusesOptions{Count: 20})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected blocklist error, got %v", err)
	}
	if store.gotOpts.Count != 0 {
		t.Error("store must not be queried when the blocklist fetch fails")
	}
}

func TestListStoreError(t *testing.T) {
	wantErr := errors.New("store down")
	svc := NewAbuseService(&fakeAbuseStore{err: wantErr}, &fakeBlocklistStore{}, nil)

	_, err := svc.List(context.Background(), repository.ListAbusesOptions{Count: 20})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	store := &fakeAbuseStore{items: []repository.AbuseWithStats{liveItem(42)}}
	svc := NewAbuseService(store, &fakeBlocklistStore{}, nil)

	resp, err := svc.Load(context.Background(), 42, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ID != 42 || resp.Video == nil {
		t.Errorf("resp = %+v", resp)
	}
}

func TestLoadNotFound(t *testing.T) {
	svc := NewAbuseService(&fakeAbuseStore{}, &fakeBlocklistStore{}, nil)

	_, err := svc.Load(context.Background(), 42, nil, nil)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
}

func TestFederationNoticeDeleted(t *testing.T) {
	svc := NewAbuseService(&fakeAbuseStore{}, &fakeBlocklistStore{}, nil)

	item := liveItem(42)
	item.Abuse.Video = nil
	_, err := svc.FederationNotice(&item.Abuse)
	if !errors.Is(err, model.ErrVideoDeleted) {
		t.Fatalf("expected ErrVideoDeleted, got %v", err)
	}

	live := liveItem(43)
	act, err := svc.FederationNotice(&live.Abuse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if act.Type != "Flag" || act.Object != "https://example.com/videos/100" {
		t.Errorf("activity = %+v", act)
	}
}
