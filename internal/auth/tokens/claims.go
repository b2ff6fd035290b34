package tokens

import "github.com/golang-jwt/jwt/v5"

type AccessClaims struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	DisplayName string   `json:"display_name,omitempty"`
	Picture     string   `json:"picture,omitempty"`
	jwt.RegisteredClaims
}
