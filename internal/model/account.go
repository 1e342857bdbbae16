package model

// Account is a reporting or content-owning identity.
type Account struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AccountSummary is the API shape embedded in abuse responses.
type AccountSummary struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
}

// Summary returns the API summary for the account, or nil when the account
// has been removed (reports keep a nil reporter in that case).
func (a *Account) Summary() *AccountSummary {
	if a == nil {
		return nil
	}
	return &AccountSummary{ID: a.ID, DisplayName: a.Name}
}
