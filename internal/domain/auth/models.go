package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller as seen by the assessment engine.
type Identity struct {
	EmployeeID string `json:"employeeId"`
	IsSA       bool   `json:"isSA"`
	IsRJ       bool   `json:"isRJ"`
	IsPJ       bool   `json:"isPJ"`
}

type Claims struct {
	EmployeeID string `json:"eid"`
	IsSA       bool   `json:"sa,omitempty"`
	IsRJ       bool   `json:"rj,omitempty"`
	IsPJ       bool   `json:"pj,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) Identity() Identity {
	return Identity{EmployeeID: c.EmployeeID, IsSA: c.IsSA, IsRJ: c.IsRJ, IsPJ: c.IsPJ}
}

type Credential struct {
	Username     string
	EmployeeID   string
	PasswordHash string
	UpdatedAt    time.Time
}
