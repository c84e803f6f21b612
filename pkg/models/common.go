package models

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	RoleAdmin      = `admin`
	RoleProspector = `prospector`
)

const (
	PeriodToday       = `today`
	PeriodThreeDays   = `3days`
	PeriodWeek        = `week`
	PeriodFifteenDays = `15days`
	PeriodMonth       = `month`
	PeriodYear        = `year`
	PeriodAll         = `all`
)

type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userID"`
	Role   string `json:"role"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
