package model

// AccountType is the bank's classification of an account.
type AccountType string

const (
	AccountTypeRetail      AccountType = "uk_retail"
	AccountTypeRetailJoint AccountType = "uk_retail_joint"
)

// Account is one entry of the bank's account listing.
type Account struct {
	ID          string
	Type        AccountType
	Description string
	Closed      bool
}
