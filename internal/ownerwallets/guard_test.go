package ownerwallets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_Authorize(t *testing.T) {
	src := seedW1()
	g := NewGuard(src, src)
	ctx := context.Background()

	w, err := g.Authorize(ctx, owner, wid(1))
	require.NoError(t, err)
	assert.Equal(t, int64(80), w.BalanceCredits)

	_, err = g.Authorize(ctx, owner, wid(3))
	require.ErrorIs(t, err, ErrPermissionDenied)

	_, err = g.Authorize(ctx, owner, wid(99))
	require.ErrorIs(t, err, ErrNotFound)

	// citypass wallets are not cafe wallets
	_, err = g.Authorize(ctx, owner, wid(4))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = g.Authorize(ctx, owner, "not-a-uuid")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = g.Authorize(ctx, owner, "urn:uuid:"+wid(1))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGuard_NoOwnedCafes(t *testing.T) {
	src := seedW1()
	g := NewGuard(src, src)

	_, err := g.Authorize(context.Background(), ownerWithoutCafes(), wid(1))
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "owns no cafes")
	assert.Equal(t, 0, src.TableReads)
}

func TestGuard_WalletWithoutCafe(t *testing.T) {
	src := seedW1()
	src.Wallets[1].CafeID = nil
	g := NewGuard(src, src)

	_, err := g.Authorize(context.Background(), owner, wid(2))
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestGuard_LookupFailureIsDataAccess(t *testing.T) {
	src := seedW1()
	src.ProcErr["get_owner_cafes"] = errors.New("connection reset by peer")
	g := NewGuard(src, src)

	_, err := g.Authorize(context.Background(), owner, wid(1))
	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, "connection reset by peer", err.Error())
}
