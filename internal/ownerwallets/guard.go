package ownerwallets

import (
	"context"
	"fmt"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/wallet"

	"github.com/google/uuid"
)

// Guard checks that a wallet belongs to a cafe the caller administers.
// It is used on the local path only; procedures enforce ownership themselves.
type Guard struct {
	cafes  Procedures
	tables Tables
}

func NewGuard(cafes Procedures, tables Tables) *Guard {
	return &Guard{cafes: cafes, tables: tables}
}

// Authorize returns the cafe wallet when the caller owns its cafe.
func (g *Guard) Authorize(ctx context.Context, id auth.Identity, walletID string) (wallet.Wallet, error) {
	if !validWalletID(walletID) {
		return wallet.Wallet{}, fmt.Errorf("%w: wallet_id must be a uuid", ErrInvalidArgument)
	}

	owned, err := g.ownedCafeSet(ctx, id)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if len(owned) == 0 {
		return wallet.Wallet{}, fmt.Errorf("%w: caller owns no cafes", ErrPermissionDenied)
	}

	w, ok, err := g.tables.FindCafeWallet(ctx, id, walletID)
	if err != nil {
		return wallet.Wallet{}, dataAccess("guard.find_wallet", err)
	}
	if !ok {
		return wallet.Wallet{}, ErrNotFound
	}
	if w.CafeID == nil {
		return wallet.Wallet{}, fmt.Errorf("%w: wallet has no cafe", ErrPermissionDenied)
	}
	if _, ok := owned[*w.CafeID]; !ok {
		return wallet.Wallet{}, fmt.Errorf("%w: wallet belongs to a cafe you do not own", ErrPermissionDenied)
	}
	return w, nil
}

// validWalletID accepts only the 36-character hyphenated form. uuid.Parse
// also takes urn:uuid: and braced forms, which Postgres rejects.
func validWalletID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func (g *Guard) ownedCafeSet(ctx context.Context, id auth.Identity) (map[string]struct{}, error) {
	cafes, err := g.cafes.OwnedCafes(ctx, id)
	if err != nil {
		return nil, dataAccess("guard.owned_cafes", err)
	}
	out := make(map[string]struct{}, len(cafes))
	for _, c := range cafes {
		out[c.ID] = struct{}{}
	}
	return out, nil
}
