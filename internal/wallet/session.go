package wallet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/pkg/utils"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// setClaims scopes the transaction to the caller so row-level security and
// auth.uid() inside procedures resolve to them. is_local=true: reset at tx end.
func setClaims(ctx context.Context, tx *sqlx.Tx, id auth.Identity) error {
	claims, err := json.Marshal(map[string]string{
		"sub":      id.UserID,
		"role":     "authenticated",
		"app_role": id.Role,
	})
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `SELECT set_config('request.jwt.claims', $1, true)`, string(claims))
	return err
}

// readAs runs fn in a read-only transaction carrying the caller's claims.
// Every call gets its own transaction; concurrent readers do not share a snapshot.
func readAs(ctx context.Context, db *sqlx.DB, id auth.Identity, fn utils.TxFunc) error {
	if !id.Valid() {
		return ErrInvalidArgument
	}
	return utils.WithTx(ctx, db, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := setClaims(ctx, tx, id); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}
