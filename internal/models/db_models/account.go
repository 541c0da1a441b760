package db_models

type Account struct {
	BaseModel
	Name         string
	Email        string `gorm:"unique"`
	PasswordHash string
	Role         string `gorm:"default:user"` // "user" | "admin"

	// Customer id in the external accounting system, written by the
	// reconciliation customer-sync step.
	LedgerCustomerID string `gorm:"index"`

	Transactions []Transaction
}
