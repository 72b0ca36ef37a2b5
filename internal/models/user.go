package models

// AuthUser is the minimal identity projection kept client side. It has no
// relation to the gateway's domain entities.
type AuthUser struct {
	Username string `json:"username"`
}
