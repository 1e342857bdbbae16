package repository

import (
	"strconv"
	"strings"

	"xorm.io/builder"
)

// ListAbusesOptions are the caller-supplied listing parameters.
type ListAbusesOptions struct {
	Start int
	Count int
	Sort  string

	// Search is OR-matched across the live video name, live channel name,
	// snapshot video name, snapshot channel name and reporter name.
	Search string

	// Scoped required-match filters. They narrow the join against their
	// respective entity; they never widen the Search OR-group.
	SearchReporter     string
	SearchVideo        string
	SearchVideoChannel string

	// Blocklist scopes. Reports from accounts blocked by either the operator
	// or the viewing user are excluded.
	OperatorAccountID int64
	UserAccountID     *int64
}

// blockedParam is the positional parameter carrying the blocked-account-id
// array. It is referenced by the top-level WHERE and by every aggregate
// subquery, so blocked reporters disappear from the counters too.
const blockedParam = "$1"

// blocklistExclusion renders the predicate excluding reports whose reporter is
// in the blocked set. The COALESCE keeps reports with a removed (NULL)
// reporter account countable inside the aggregate subqueries, where rows are
// not forced through the reporter join.
func blocklistExclusion(reporterColumn string) string {
	return "NOT COALESCE(" + reporterColumn + " = ANY(" + blockedParam + "), false)"
}

// like escapes LIKE wildcards in a user-supplied term and wraps it for a
// substring match.
func like(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}

// ilike is the store-level "field matches term" predicate: case-insensitive,
// partial.
func ilike(column, pattern string) builder.Cond {
	return builder.Expr(column+" ILIKE ?", pattern)
}

// searchCond builds the disjunctive match across the video, channel, snapshot
// and reporter name fields. Each clause requires its joined row or snapshot to
// be present before matching, so absent data never produces a false positive.
// An empty term yields the identity condition.
func searchCond(term string) builder.Cond {
	if term == "" {
		return builder.NewCond()
	}
	pattern := like(term)
	return builder.Or(
		builder.And(
			builder.NotNull{`"video"."id"`},
			ilike(`"video"."name"`, pattern),
		),
		builder.And(
			builder.NotNull{`"video"."id"`},
			ilike(`"videoChannel"."name"`, pattern),
		),
		builder.And(
			builder.NotNull{`"videoAbuse"."deleted_video"`},
			ilike(`"videoAbuse"."deleted_video"->>'name'`, pattern),
		),
		builder.And(
			builder.NotNull{`"videoAbuse"."deleted_video"`},
			ilike(`"videoAbuse"."deleted_video"->'channel'->>'displayName'`, pattern),
		),
		ilike(`"reporterAccount"."name"`, pattern),
	)
}

// termFilters applies the scoped required-match filters. An ILIKE against a
// left-joined column is NULL (never true) when the row is absent, so matching
// a live-video term implicitly requires the live row to exist.
func termFilters(opts ListAbusesOptions) builder.Cond {
	cond := builder.NewCond()
	if opts.SearchReporter != "" {
		cond = cond.And(ilike(`"reporterAccount"."name"`, like(opts.SearchReporter)))
	}
	if opts.SearchVideo != "" {
		cond = cond.And(ilike(`"video"."name"`, like(opts.SearchVideo)))
	}
	if opts.SearchVideoChannel != "" {
		cond = cond.And(ilike(`"videoChannel"."name"`, like(opts.SearchVideoChannel)))
	}
	return cond
}

// rebind converts builder-style ? placeholders into pgx positional parameters
// starting at $first. Conditions never embed a literal question mark, so a
// plain character scan is enough.
func rebind(sql string, first int) string {
	var b strings.Builder
	n := first
	for _, r := range sql {
		if r == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// whereSQL renders the combined predicate into a WHERE clause. The blocklist
// exclusion is applied unconditionally; cond placeholders are rebound to start
// after the blocked-ids array parameter.
func whereSQL(cond builder.Cond) (string, []interface{}, error) {
	exclusion := blocklistExclusion(`"videoAbuse"."reporter_account_id"`)
	if !cond.IsValid() {
		return "WHERE " + exclusion, nil, nil
	}
	sql, args, err := builder.ToSQL(cond)
	if err != nil {
		return "", nil, err
	}
	return "WHERE " + exclusion + " AND (" + rebind(sql, 2) + ")", args, nil
}
