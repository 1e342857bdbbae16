package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BlocklistRepo reads block relationships. The listing engine only ever needs
// the flat set of blocked account ids for the operator and viewer scopes.
type BlocklistRepo struct {
	pool *pgxpool.Pool
}

func NewBlocklistRepo(pool *pgxpool.Pool) *BlocklistRepo {
	return &BlocklistRepo{pool: pool}
}

// BlockedAccountIDs returns the distinct account ids blocked server-wide by
// the operator account or personally by the viewing account (when given).
// Membership in either scope is enough to be excluded.
func (r *BlocklistRepo) BlockedAccountIDs(ctx context.Context, operatorAccountID int64, userAccountID *int64) ([]int64, error) {
	owners := []int64{operatorAccountID}
	if userAccountID != nil {
		owners = append(owners, *userAccountID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT "blocked_account_id"
		FROM "account_blocklists"
		WHERE "account_id" = ANY($1)`, owners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
