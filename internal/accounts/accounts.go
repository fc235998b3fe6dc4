// Package accounts picks the account receipts are reconciled against.
package accounts

import (
	"errors"

	"github.com/cleared-dev/farereceipts/internal/model"
)

// ErrNoPersonalAccount is returned when the listing has no account of the
// wanted type.
var ErrNoPersonalAccount = errors.New("could not find a personal account")

// SelectPersonal returns the first account of type accountType, by default the
// personal current account. Joint accounts have a different type and are
// never chosen.
func SelectPersonal(accts []model.Account, accountType model.AccountType) (model.Account, error) {
	if accountType == "" {
		accountType = model.AccountTypeRetail
	}
	for _, a := range accts {
		if a.Type == accountType {
			return a, nil
		}
	}
	return model.Account{}, ErrNoPersonalAccount
}
