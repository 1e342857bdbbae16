package repository

import (
	"fmt"
	"strings"
	"testing"

	"xorm.io/builder"
)

func TestLike(t *testing.T) {
	tests := []struct {
		name string
		term string
		want string
	}{
		{"plain", "cats", "%cats%"},
		{"percent escaped", "50%", `%50\%%`},
		{"underscore escaped", "a_b", `%a\_b%`},
		{"backslash escaped", `a\b`, `%a\\b%`},
		{"all specials", `\%_`, `%\\\%\_%`},
		{"empty", "", "%%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := like(tt.term); got != tt.want {
				t.Errorf("like(%q) = %q, want %q", tt.term, got, tt.want)
			}
		})
	}
}

func TestBlocklistExclusion(t *testing.T) {
	got := blocklistExclusion(`"videoAbuse"."reporter_account_id"`)
	want := `NOT COALESCE("videoAbuse"."reporter_account_id" = ANY($1), false)`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		first int
		want  string
	}{
		{"no placeholders", "SELECT 1", 2, "SELECT 1"},
		{"single", "a = ?", 2, "a = $2"},
		{"multiple", "a = ? AND b ILIKE ? OR c = ?", 2, "a = $2 AND b ILIKE $3 OR c = $4"},
		{"double digit", "? ? ? ? ? ? ? ? ? ?", 5, "$5 $6 $7 $8 $9 $10 $11 $12 $13 $14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rebind(tt.sql, tt.first); got != tt.want {
				t.Errorf("rebind(%q, %d) = %q, want %q", tt.sql, tt.first, got, tt.want)
			}
		})
	}
}

func TestSearchCondEmpty(t *testing.T) {
	if searchCond("").IsValid() {
		t.Error("empty term must yield the identity condition")
	}
}

func TestSearchCond(t *testing.T) {
	sql, args, err := builder.ToSQL(searchCond("cat"))
	if err != nil {
		t.Fatal(err)
	}

	// One pattern per matched field, all identical.
	if len(args) != 5 {
		t.Fatalf("got %d args, want 5: %v", len(args), args)
	}
	for i, a := range args {
		if a != "%cat%" {
			t.Errorf("arg %d = %v, want %%cat%%", i, a)
		}
	}

	for _, col := range []string{
		`"video"."name"`,
		`"videoChannel"."name"`,
		`"videoAbuse"."deleted_video"->>'name'`,
		`"videoAbuse"."deleted_video"->'channel'->>'displayName'`,
		`"reporterAccount"."name"`,
	} {
		if !strings.Contains(sql, col+" ILIKE ?") {
			t.Errorf("missing ILIKE clause for %s in %q", col, sql)
		}
	}

	// Live-row and snapshot clauses must be guarded so absent data cannot match.
	if !strings.Contains(sql, `"video"."id" IS NOT NULL`) {
		t.Errorf("missing live-video guard in %q", sql)
	}
	if !strings.Contains(sql, `"videoAbuse"."deleted_video" IS NOT NULL`) {
		t.Errorf("missing snapshot guard in %q", sql)
	}
	if !strings.Contains(sql, " OR ") {
		t.Errorf("clauses not OR-combined in %q", sql)
	}
}

func TestTermFilters(t *testing.T) {
	tests := []struct {
		name     string
		opts     ListAbusesOptions
		wantArgs []interface{}
		wantCols []string
	}{
		{
			"none",
			ListAbusesOptions{},
			nil,
			nil,
		},
		{
			"reporter only",
			ListAbusesOptions{SearchReporter: "alice"},
			[]interface{}{"%alice%"},
			[]string{`"reporterAccount"."name"`},
		},
		{
			"all three in order",
			ListAbusesOptions{SearchReporter: "alice", SearchVideo: "cat", SearchVideoChannel: "main"},
			[]interface{}{"%alice%", "%cat%", "%main%"},
			[]string{`"reporterAccount"."name"`, `"video"."name"`, `"videoChannel"."name"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := termFilters(tt.opts)
			if len(tt.wantArgs) == 0 {
				if cond.IsValid() {
					t.Error("expected identity condition")
				}
				return
			}
			sql, args, err := builder.ToSQL(cond)
			if err != nil {
				t.Fatal(err)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("got %d args, want %d: %v", len(args), len(tt.wantArgs), args)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("arg %d = %v, want %v", i, args[i], tt.wantArgs[i])
				}
			}
			for _, col := range tt.wantCols {
				if !strings.Contains(sql, col+" ILIKE ?") {
					t.Errorf("missing filter on %s in %q", col, sql)
				}
			}
			if strings.Contains(sql, " OR ") {
				t.Errorf("scoped filters must be AND-combined: %q", sql)
			}
		})
	}
}

func TestWhereSQLEmpty(t *testing.T) {
	sql, args, err := whereSQL(builder.NewCond())
	if err != nil {
		t.Fatal(err)
	}
	want := `WHERE NOT COALESCE("videoAbuse"."reporter_account_id" = ANY($1), false)`
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestWhereSQLWithCond(t *testing.T) {
	sql, args, err := whereSQL(searchCond("cat"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sql, `WHERE NOT COALESCE("videoAbuse"."reporter_account_id" = ANY($1), false) AND (`) {
		t.Errorf("exclusion must come first: %q", sql)
	}
	if strings.Contains(sql, "?") {
		t.Errorf("unrebound placeholder left in %q", sql)
	}
	// Predicate parameters start after the blocked-ids array.
	if !strings.Contains(sql, "$2") {
		t.Errorf("predicate parameters must start at $2: %q", sql)
	}
	if len(args) != 5 {
		t.Errorf("got %d args, want 5", len(args))
	}
}

func TestBuildListQueries(t *testing.T) {
	opts := ListAbusesOptions{
		Start:          40,
		Count:          20,
		Sort:           "-createdAt",
		Search:         "cat",
		SearchReporter: "alice",
	}

	countQuery, pageQuery, countArgs, pageArgs, err := buildListQueries(opts, []int64{3, 9})
	if err != nil {
		t.Fatal(err)
	}

	// 5 search args + 1 reporter arg after the blocked array.
	condArgs := 6
	limitPos := condArgs + 2

	if !strings.Contains(pageQuery, fmt.Sprintf("LIMIT $%d OFFSET $%d", limitPos, limitPos+1)) {
		t.Errorf("pagination placeholders misnumbered in %q", pageQuery)
	}
	if strings.Contains(countQuery, "?") || strings.Contains(pageQuery, "?") {
		t.Error("unrebound placeholder left in composed query")
	}

	if !strings.Contains(countQuery, `COUNT(DISTINCT "videoAbuse"."id")`) {
		t.Errorf("total must count distinct report ids: %q", countQuery)
	}
	if strings.Contains(countQuery, "LIMIT") || strings.Contains(countQuery, "ORDER BY") {
		t.Errorf("count query must not paginate or sort: %q", countQuery)
	}

	if !strings.Contains(pageQuery, `ORDER BY "videoAbuse"."created_at" DESC, "videoAbuse"."id" ASC`) {
		t.Errorf("missing sort with id tiebreaker in %q", pageQuery)
	}
	if !strings.Contains(pageQuery, `INNER JOIN "accounts" "reporterAccount"`) {
		t.Errorf("reporter join must be inner: %q", pageQuery)
	}
	for _, agg := range []string{"count_reports_for_video", "nth_report_for_video", "count_reports_for_reporter", "count_reports_for_reportee"} {
		if !strings.Contains(pageQuery, agg) {
			t.Errorf("missing aggregate column %s", agg)
		}
	}
	// Every aggregate subquery repeats the blocked-reporter exclusion.
	if n := strings.Count(pageQuery, `= ANY($1)`); n < 7 {
		t.Errorf("blocked array referenced %d times, want the WHERE plus every counter leg", n)
	}

	if len(countArgs) != 1+condArgs {
		t.Fatalf("countArgs len = %d, want %d", len(countArgs), 1+condArgs)
	}
	if len(pageArgs) != 1+condArgs+2 {
		t.Fatalf("pageArgs len = %d, want %d", len(pageArgs), 1+condArgs+2)
	}
	blocked, ok := pageArgs[0].([]int64)
	if !ok || len(blocked) != 2 || blocked[0] != 3 || blocked[1] != 9 {
		t.Errorf("pageArgs[0] = %v, want blocked ids", pageArgs[0])
	}
	if pageArgs[len(pageArgs)-2] != 20 || pageArgs[len(pageArgs)-1] != 40 {
		t.Errorf("limit/offset args = %v", pageArgs[len(pageArgs)-2:])
	}
}

func TestBuildListQueriesNoFilters(t *testing.T) {
	countQuery, pageQuery, countArgs, pageArgs, err := buildListQueries(ListAbusesOptions{Count: 20}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Nil blocked set still binds an empty array for $1.
	blocked, ok := countArgs[0].([]int64)
	if !ok || blocked == nil || len(blocked) != 0 {
		t.Errorf("countArgs[0] = %v, want empty []int64", countArgs[0])
	}
	if len(countArgs) != 1 {
		t.Errorf("countArgs = %v", countArgs)
	}
	if len(pageArgs) != 3 {
		t.Errorf("pageArgs = %v", pageArgs)
	}
	if !strings.Contains(pageQuery, "LIMIT $2 OFFSET $3") {
		t.Errorf("pagination placeholders misnumbered in %q", pageQuery)
	}
	// Default sort is newest first.
	if !strings.Contains(pageQuery, `ORDER BY "videoAbuse"."created_at" DESC`) {
		t.Errorf("default sort missing in %q", pageQuery)
	}
	if !strings.HasSuffix(strings.TrimSpace(countQuery), `WHERE NOT COALESCE("videoAbuse"."reporter_account_id" = ANY($1), false)`) {
		t.Errorf("count query WHERE = %q", countQuery)
	}
}

func TestBuildListQueriesBadSort(t *testing.T) {
	_, _, _, _, err := buildListQueries(ListAbusesOptions{Sort: "reason"}, nil)
	if err == nil {
		t.Fatal("expected error for non-whitelisted sort key")
	}
}
