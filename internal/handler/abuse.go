package handler

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flagwatch/flagwatch-go/internal/middleware"
	"github.com/flagwatch/flagwatch-go/internal/model"
	"github.com/flagwatch/flagwatch-go/internal/repository"
	"github.com/flagwatch/flagwatch-go/internal/service"
	"github.com/flagwatch/flagwatch-go/pkg/sorting"
)

type AbuseHandler struct {
	svc *service.AbuseService

	// The instance's operator account; its server-wide blocklist applies to
	// every listing.
	operatorAccountID int64
}

func NewAbuseHandler(svc *service.AbuseService, operatorAccountID int64) *AbuseHandler {
	return &AbuseHandler{svc: svc, operatorAccountID: operatorAccountID}
}

// List handles GET /api/abuses
func (h *AbuseHandler) List(c fiber.Ctx) error {
	start, count, errMsg := middleware.ValidatePagination(
		fiber.Query[string](c, "start"),
		fiber.Query[string](c, "count"),
	)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PAGINATION", errMsg)
	}

	sort := fiber.Query[string](c, "sort")
	if _, err := sorting.ParseAbuseSort(sort); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_SORT", err.Error())
	}

	opts := repository.ListAbusesOptions{
		Start:             start,
		Count:             count,
		Sort:              sort,
		OperatorAccountID: h.operatorAccountID,
	}

	for _, term := range []struct {
		name string
		dst  *string
	}{
		{"search", &opts.Search},
		{"searchReporter", &opts.SearchReporter},
		{"searchVideo", &opts.SearchVideo},
		{"searchVideoChannel", &opts.SearchVideoChannel},
	} {
		value, errMsg := middleware.ValidateSearchTerm(fiber.Query[string](c, term.name))
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_SEARCH", errMsg)
		}
		*term.dst = value
	}

	if viewer := c.Get("X-Account-ID"); viewer != "" {
		id, errMsg := middleware.ValidateAccountID(viewer)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ACCOUNT", errMsg)
		}
		opts.UserAccountID = &id
	}

	started := time.Now()
	result, err := h.svc.List(c.Context(), opts)
	if err != nil {
		return h.listError(c, err)
	}

	Metrics.AbuseListDuration.Observe(time.Since(started).Seconds())
	Metrics.AbuseListRows.Observe(float64(len(result.Data)))

	return c.JSON(result)
}

// Get handles GET /api/abuses/:id
func (h *AbuseHandler) Get(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateAbuseID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ID", errMsg)
	}

	var videoID *int64
	if v := fiber.Query[string](c, "videoId"); v != "" {
		parsed, errMsg := middleware.ValidateVideoID(v)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_VIDEO_ID", errMsg)
		}
		videoID = &parsed
	}

	var videoUUID *uuid.UUID
	if v := fiber.Query[string](c, "videoUuid"); v != "" {
		parsed, err := uuid.Parse(v)
		if err != nil {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_VIDEO_UUID", "videoUuid must be a valid UUID")
		}
		videoUUID = &parsed
	}

	resp, err := h.svc.Load(c.Context(), id, videoID, videoUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Abuse report not found")
		}
		return h.listError(c, err)
	}

	return c.JSON(resp)
}

// listError maps engine failures onto distinguishable API errors: an integrity
// gap (report with no displayable video) is reported separately from store
// failures so callers can choose status handling.
func (h *AbuseHandler) listError(c fiber.Ctx, err error) error {
	sentry.CaptureException(err)
	if errors.Is(err, model.ErrNoVideoData) {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "DATA_INTEGRITY", "A report is missing both its video and its deletion snapshot")
	}
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list abuse reports")
}
