package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"xorm.io/builder"

	"github.com/flagwatch/flagwatch-go/internal/model"
	"github.com/flagwatch/flagwatch-go/pkg/sorting"
)

type AbuseRepo struct {
	pool *pgxpool.Pool
}

func NewAbuseRepo(pool *pgxpool.Pool) *AbuseRepo {
	return &AbuseRepo{pool: pool}
}

// Column list for one listed report plus its joined reporter, live video and
// channel rows. Scan order must match scanAbuseRow.
const abuseColumns = `
	"videoAbuse"."id",
	"videoAbuse"."reason",
	"videoAbuse"."state",
	"videoAbuse"."moderation_comment",
	"videoAbuse"."created_at",
	"videoAbuse"."updated_at",
	"videoAbuse"."reporter_account_id",
	"videoAbuse"."video_id",
	"videoAbuse"."deleted_video",
	"reporterAccount"."name",
	"video"."uuid",
	"video"."name",
	"video"."url",
	"video"."nsfw",
	"video"."thumbnail_path",
	"video"."blacklist_id",
	"video"."channel_id",
	"videoChannel"."id",
	"videoChannel"."name",
	"videoChannel"."account_id"`

// The reporter join is an inner join: reports whose reporting account no
// longer exists are excluded from listings entirely. Video and channel stay
// left joins because deleted-content reports have no live rows.
const abuseJoins = `
	FROM "video_abuses" "videoAbuse"
	INNER JOIN "accounts" "reporterAccount" ON "reporterAccount"."id" = "videoAbuse"."reporter_account_id"
	LEFT JOIN "videos" "video" ON "video"."id" = "videoAbuse"."video_id"
	LEFT JOIN "video_channels" "videoChannel" ON "videoChannel"."id" = "video"."channel_id"`

// The four read-time statistics, computed by the store as correlated
// set-aggregates in the same round trip as the listing itself.
//
// Each subquery repeats the blocked-reporter exclusion so a blocklisted
// account's reports vanish from every other row's counters, in both the live
// and the deleted populations.
//
// countReportsForVideo and nthReportForVideo are undefined (0) once the video
// is deleted: the correlated video_id comparison matches nothing on NULL.
//
// countReportsForReporter and countReportsForReportee each sum two disjoint
// populations, reports whose target is live (joined through video and channel
// to the owner account) and reports whose target survives only as a snapshot
// (owner id read from the deleted_video JSON). A report row is in exactly one
// population, so the sum never double-counts; the reportee legs use DISTINCT
// because their OR-matched owner join can fan out.
const abuseStatsColumns = `
	COALESCE((
		SELECT COUNT("abuse"."id")
		FROM "video_abuses" "abuse"
		WHERE "abuse"."video_id" = "videoAbuse"."video_id"
		  AND NOT COALESCE("abuse"."reporter_account_id" = ANY($1), false)
	), 0) AS "count_reports_for_video",
	COALESCE((
		SELECT "t"."nth"
		FROM (
			SELECT "id", ROW_NUMBER() OVER (PARTITION BY "video_id" ORDER BY "created_at" ASC, "id" ASC) AS "nth"
			FROM "video_abuses"
			WHERE "video_id" IS NOT NULL
			  AND NOT COALESCE("reporter_account_id" = ANY($1), false)
		) "t"
		WHERE "t"."id" = "videoAbuse"."id"
	), 0) AS "nth_report_for_video",
	COALESCE((
		SELECT COUNT("abuse"."id")
		FROM "video_abuses" "abuse"
		INNER JOIN "videos" "v" ON "v"."id" = "abuse"."video_id"
		INNER JOIN "video_channels" "vc" ON "vc"."id" = "v"."channel_id"
		INNER JOIN "accounts" "owner" ON "owner"."id" = "vc"."account_id"
		WHERE "owner"."id" = "videoAbuse"."reporter_account_id"
		  AND NOT COALESCE("abuse"."reporter_account_id" = ANY($1), false)
	), 0) + COALESCE((
		SELECT COUNT(DISTINCT "abuse"."id")
		FROM "video_abuses" "abuse"
		WHERE "abuse"."deleted_video" IS NOT NULL
		  AND ("abuse"."deleted_video"->'channel'->'ownerAccount'->>'id')::bigint = "videoAbuse"."reporter_account_id"
		  AND NOT COALESCE("abuse"."reporter_account_id" = ANY($1), false)
	), 0) AS "count_reports_for_reporter",
	COALESCE((
		SELECT COUNT(DISTINCT "abuse"."id")
		FROM "video_abuses" "abuse"
		INNER JOIN "videos" "v" ON "v"."id" = "abuse"."video_id"
		INNER JOIN "video_channels" "vc" ON "vc"."id" = "v"."channel_id"
		WHERE ("vc"."account_id" = "videoChannel"."account_id"
		   OR "vc"."account_id" = ("videoAbuse"."deleted_video"->'channel'->'ownerAccount'->>'id')::bigint)
		  AND NOT COALESCE("abuse"."reporter_account_id" = ANY($1), false)
	), 0) + COALESCE((
		SELECT COUNT(DISTINCT "abuse"."id")
		FROM "video_abuses" "abuse"
		WHERE "abuse"."deleted_video" IS NOT NULL
		  AND (("abuse"."deleted_video"->'channel'->'ownerAccount'->>'id')::bigint = "videoChannel"."account_id"
		   OR ("abuse"."deleted_video"->'channel'->'ownerAccount'->>'id')::bigint = ("videoAbuse"."deleted_video"->'channel'->'ownerAccount'->>'id')::bigint)
		  AND NOT COALESCE("abuse"."reporter_account_id" = ANY($1), false)
	), 0) AS "count_reports_for_reportee"`

// AbuseWithStats pairs a report row with its aggregate statistics.
type AbuseWithStats struct {
	Abuse model.VideoAbuse
	Stats model.AbuseStats
}

// buildListQueries assembles the count and page statements for a listing call.
// Parameter layout: $1 blocked-ids array, then the predicate args, then limit
// and offset (page query only). Split out from ListAbuses so the composition
// is testable without a store.
func buildListQueries(opts ListAbusesOptions, blockedIDs []int64) (countQuery, pageQuery string, countArgs, pageArgs []interface{}, err error) {
	sortClause, err := sorting.ParseAbuseSort(opts.Sort)
	if err != nil {
		return "", "", nil, nil, err
	}

	cond := searchCond(opts.Search).And(termFilters(opts))
	where, condArgs, err := whereSQL(cond)
	if err != nil {
		return "", "", nil, nil, err
	}

	if blockedIDs == nil {
		blockedIDs = []int64{}
	}

	// Total is counted on the report id so join fan-out cannot inflate it.
	countQuery = fmt.Sprintf(`SELECT COUNT(DISTINCT "videoAbuse"."id") %s %s`, abuseJoins, where)

	limitPos := len(condArgs) + 2
	pageQuery = fmt.Sprintf(`SELECT %s, %s %s %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		abuseColumns, abuseStatsColumns, abuseJoins, where, sortClause.SQL(), limitPos, limitPos+1)

	countArgs = make([]interface{}, 0, len(condArgs)+1)
	countArgs = append(countArgs, blockedIDs)
	countArgs = append(countArgs, condArgs...)

	pageArgs = make([]interface{}, 0, len(condArgs)+3)
	pageArgs = append(pageArgs, blockedIDs)
	pageArgs = append(pageArgs, condArgs...)
	pageArgs = append(pageArgs, opts.Count, opts.Start)

	return countQuery, pageQuery, countArgs, pageArgs, nil
}

// ListAbuses executes one composed listing call: blocklist exclusion always,
// search and term filters when present, caller sort with a stable id
// tiebreaker, offset/limit pagination. The pre-pagination total and the page
// are fetched in a single batch so a listing stays one store round trip.
func (r *AbuseRepo) ListAbuses(ctx context.Context, opts ListAbusesOptions, blockedIDs []int64) ([]AbuseWithStats, int64, error) {
	countQuery, pageQuery, countArgs, pageArgs, err := buildListQueries(opts, blockedIDs)
	if err != nil {
		return nil, 0, err
	}

	batch := &pgx.Batch{}
	batch.Queue(countQuery, countArgs...)
	batch.Queue(pageQuery, pageArgs...)

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var total int64
	if err := results.QueryRow().Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := results.Query()
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []AbuseWithStats
	for rows.Next() {
		item, err := scanAbuseRow(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// LoadByID fetches a single report with its joins and statistics. The optional
// filters pin the match to a specific target: a live video id, a snapshot
// uuid, or either. Returns pgx.ErrNoRows when absent.
func (r *AbuseRepo) LoadByID(ctx context.Context, id int64, videoID *int64, videoUUID *uuid.UUID) (*AbuseWithStats, error) {
	cond := builder.NewCond().And(builder.Eq{`"videoAbuse"."id"`: id})

	target := builder.NewCond()
	if videoID != nil {
		target = target.Or(builder.Eq{`"videoAbuse"."video_id"`: *videoID})
	}
	if videoUUID != nil {
		target = target.Or(builder.Expr(`"videoAbuse"."deleted_video"->>'uuid' = ?`, videoUUID.String()))
	}
	if target.IsValid() {
		cond = cond.And(target)
	}

	condSQL, condArgs, err := builder.ToSQL(cond)
	if err != nil {
		return nil, err
	}

	// No viewer scoping on a direct load; the counters see every reporter.
	query := fmt.Sprintf(`SELECT %s, %s %s WHERE %s`,
		abuseColumns, abuseStatsColumns, abuseJoins, rebind(condSQL, 2))
	args := make([]interface{}, 0, len(condArgs)+1)
	args = append(args, []int64{})
	args = append(args, condArgs...)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	item, err := scanAbuseRow(rows)
	if err != nil {
		return nil, err
	}
	return item, rows.Err()
}

// Create inserts a new report after validating its write-time constraints.
// The id and timestamps are filled in from the inserted row.
func (r *AbuseRepo) Create(ctx context.Context, abuse *model.VideoAbuse) error {
	if err := abuse.Validate(); err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO "video_abuses" ("reason", "state", "moderation_comment", "reporter_account_id", "video_id")
		VALUES ($1, $2, $3, $4, $5)
		RETURNING "id", "created_at", "updated_at"`,
		abuse.Reason, int(abuse.State), abuse.ModerationComment, abuse.ReporterAccountID, abuse.VideoID,
	).Scan(&abuse.ID, &abuse.CreatedAt, &abuse.UpdatedAt)
}

// UpdateModeration applies a moderator's state change and optional comment.
// Returns pgx.ErrNoRows when the report does not exist.
func (r *AbuseRepo) UpdateModeration(ctx context.Context, id int64, state model.AbuseState, comment *string) error {
	if !state.Valid() {
		return &model.ValidationError{Field: "state", Message: fmt.Sprintf("unknown state code %d", int(state))}
	}
	if comment != nil && len(*comment) > model.AbuseModerationCommentMaxLen {
		return &model.ValidationError{Field: "moderationComment", Message: fmt.Sprintf("must be at most %d characters", model.AbuseModerationCommentMaxLen)}
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE "video_abuses"
		SET "state" = $1, "moderation_comment" = $2, "updated_at" = NOW()
		WHERE "id" = $3`,
		int(state), comment, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SnapshotDeletedVideo freezes the video's identity into every report filed
// against it and detaches the live reference, in one transaction. The video
// deletion flow calls this before the video row goes away.
func (r *AbuseRepo) SnapshotDeletedVideo(ctx context.Context, video *model.Video, channel *model.VideoChannel, owner *model.Account) error {
	payload, err := json.Marshal(model.NewVideoDetails(video, channel, owner))
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE "video_abuses"
		SET "video_id" = NULL, "deleted_video" = $1, "updated_at" = NOW()
		WHERE "video_id" = $2`,
		payload, video.ID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// scanAbuseRow reads one listing row in abuseColumns + abuseStatsColumns order
// and reassembles the nested report.
func scanAbuseRow(rows pgx.Rows) (*AbuseWithStats, error) {
	var (
		item         AbuseWithStats
		state        int
		reporterName *string
		deletedVideo []byte

		videoUUID      *uuid.UUID
		videoName      *string
		videoURL       *string
		videoNSFW      *bool
		thumbnailPath  *string
		blacklistID    *int64
		videoChannelFK *int64

		channelID        *int64
		channelName      *string
		channelAccountID *int64
	)

	err := rows.Scan(
		&item.Abuse.ID,
		&item.Abuse.Reason,
		&state,
		&item.Abuse.ModerationComment,
		&item.Abuse.CreatedAt,
		&item.Abuse.UpdatedAt,
		&item.Abuse.ReporterAccountID,
		&item.Abuse.VideoID,
		&deletedVideo,
		&reporterName,
		&videoUUID,
		&videoName,
		&videoURL,
		&videoNSFW,
		&thumbnailPath,
		&blacklistID,
		&videoChannelFK,
		&channelID,
		&channelName,
		&channelAccountID,
		&item.Stats.CountReportsForVideo,
		&item.Stats.NthReportForVideo,
		&item.Stats.CountReportsForReporter,
		&item.Stats.CountReportsForReportee,
	)
	if err != nil {
		return nil, err
	}

	item.Abuse.State = model.AbuseState(state)

	if item.Abuse.ReporterAccountID != nil && reporterName != nil {
		item.Abuse.ReporterAccount = &model.Account{
			ID:   *item.Abuse.ReporterAccountID,
			Name: *reporterName,
		}
	}

	if item.Abuse.VideoID != nil && videoUUID != nil {
		video := &model.Video{
			ID:            *item.Abuse.VideoID,
			UUID:          *videoUUID,
			NSFW:          videoNSFW != nil && *videoNSFW,
			ThumbnailPath: thumbnailPath,
			BlacklistID:   blacklistID,
		}
		if videoName != nil {
			video.Name = *videoName
		}
		if videoURL != nil {
			video.URL = *videoURL
		}
		if videoChannelFK != nil {
			video.ChannelID = *videoChannelFK
		}
		item.Abuse.Video = video

		if channelID != nil {
			channel := &model.VideoChannel{ID: *channelID}
			if channelName != nil {
				channel.Name = *channelName
			}
			if channelAccountID != nil {
				channel.AccountID = *channelAccountID
			}
			item.Abuse.VideoChannel = channel
		}
	}

	if len(deletedVideo) > 0 {
		var details model.VideoDetails
		if err := json.Unmarshal(deletedVideo, &details); err != nil {
			return nil, fmt.Errorf("decode deleted video snapshot for abuse %d: %w", item.Abuse.ID, err)
		}
		item.Abuse.DeletedVideo = &details
	}

	return &item, nil
}
