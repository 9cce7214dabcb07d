package models

// TokenClaims are the claims read from a verified bearer token
type TokenClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Iss   string `json:"iss"`
}
