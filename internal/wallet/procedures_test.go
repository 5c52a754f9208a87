package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCall_NamedArgs(t *testing.T) {
	q, params, err := buildCall("owner_get_wallet_transactions", []Arg{
		{Name: "p_wallet_id", Value: "w1"},
		{Name: "p_limit", Value: 50},
		{Name: "p_offset", Value: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM owner_get_wallet_transactions(p_wallet_id => $1, p_limit => $2, p_offset => $3)", q)
	assert.Equal(t, []any{"w1", 50, 0}, params)
}

func TestBuildCall_RejectsUnsafeNames(t *testing.T) {
	_, _, err := buildCall("owner_get_wallets(); drop table wallets; --", nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = buildCall("owner_get_wallets", []Arg{{Name: "p limit", Value: 1}})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCall_ReturnsLooseRows(t *testing.T) {
	db, mock := setupMock(t)
	procs := NewProcedures(db)
	now := time.Now().UTC()

	expectClaims(mock)
	mock.ExpectQuery(`SELECT \* FROM owner_get_wallet_overview\(p_wallet_id => \$1\)`).
		WithArgs("w1").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_id", "balance_credits", "user_email", "created_at"}).
			AddRow("w1", int64(80), []byte("a@b.c"), now))
	mock.ExpectCommit()

	rows, err := procs.Call(context.Background(), owner, "owner_get_wallet_overview", Arg{Name: "p_wallet_id", Value: "w1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "w1", rows[0]["wallet_id"])
	assert.Equal(t, "a@b.c", rows[0]["user_email"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCall_MissingProcedureErrorPassesThrough(t *testing.T) {
	db, mock := setupMock(t)
	procs := NewProcedures(db)
	missing := errors.New(`function owner_get_wallets_stats(p_cafe_id => unknown) does not exist`)

	expectClaims(mock)
	mock.ExpectQuery(`owner_get_wallets_stats`).WillReturnError(missing)
	mock.ExpectRollback()

	_, err := procs.Call(context.Background(), owner, "owner_get_wallets_stats", Arg{Name: "p_cafe_id", Value: nil})
	require.ErrorIs(t, err, missing)
}

func TestOwnedCafes_MapsRows(t *testing.T) {
	db, mock := setupMock(t)
	procs := NewProcedures(db)

	expectClaims(mock)
	mock.ExpectQuery(`SELECT \* FROM get_owner_cafes\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("c1", "Bean There").
			AddRow("c2", nil))
	mock.ExpectCommit()

	cafes, err := procs.OwnedCafes(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, cafes, 2)
	require.NotNil(t, cafes[0].Name)
	assert.Equal(t, "Bean There", *cafes[0].Name)
	assert.Nil(t, cafes[1].Name)
}
