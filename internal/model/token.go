package model

// Token is an immutable asset identity.
type Token struct {
	ID      string `json:"id"`
	Symbol  string `json:"symbol"`
	Display string `json:"display"`
	IsBase  bool   `json:"is_base"`
}
