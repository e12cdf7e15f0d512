package models

// CurrencyRecord is the persisted balance document, one per user.
// It is only ever written through the economy.Ledger.
type CurrencyRecord struct {
	UserID   string `json:"userId"`
	Currency int64  `json:"currency"`
}
