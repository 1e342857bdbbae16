package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Listing parameter limits.
const (
	DefaultPageCount = 20
	MaxPageCount     = 100
	MaxSearchLen     = 255
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidatePagination parses the start/count query values, applying defaults
// and the page-size ceiling.
func ValidatePagination(startStr, countStr string) (start, count int, errMsg string) {
	start = 0
	count = DefaultPageCount

	if startStr != "" {
		v, err := strconv.Atoi(startStr)
		if err != nil || v < 0 {
			return 0, 0, "start must be a non-negative integer"
		}
		start = v
	}

	if countStr != "" {
		v, err := strconv.Atoi(countStr)
		if err != nil || v < 1 {
			return 0, 0, "count must be a positive integer"
		}
		if v > MaxPageCount {
			return 0, 0, "count must be at most " + strconv.Itoa(MaxPageCount)
		}
		count = v
	}

	return start, count, ""
}

// ValidateSearchTerm trims a search term and bounds its length. Empty terms
// are valid (no filtering).
func ValidateSearchTerm(term string) (string, string) {
	term = strings.TrimSpace(term)
	if len(term) > MaxSearchLen {
		return "", "search term must be at most " + strconv.Itoa(MaxSearchLen) + " characters"
	}
	return term, ""
}

// ValidateAccountID parses a positive account id from a header or query value.
func ValidateAccountID(s string) (int64, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "account id is required"
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, "account id must be a positive integer"
	}
	return id, ""
}

// ValidateVideoID parses a positive live-video id from a query value.
func ValidateVideoID(s string) (int64, string) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, "videoId must be a positive integer"
	}
	return id, ""
}

// ValidateAbuseID parses a positive report id from a path parameter.
func ValidateAbuseID(s string) (int64, string) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, "abuse id must be a positive integer"
	}
	return id, ""
}
