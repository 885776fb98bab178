package models

// Actor is the authenticated identity performing an operation. The identity
// provider is trusted for these fields; the core only compares IDs for
// permission checks.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
