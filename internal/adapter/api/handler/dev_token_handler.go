package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"carmarket/pkg/response"
)

// TokenIssuer mints bearer tokens for local testing.
type TokenIssuer interface {
	IssueToken(uid string) (string, time.Time, error)
}

type DevTokenHandler struct {
	issuer TokenIssuer
}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler(issuer TokenIssuer) *DevTokenHandler {
	return &DevTokenHandler{
		issuer: issuer,
	}
}

func SetupDevTokenHandler(issuer TokenIssuer) {
	devTokenHandler = NewDevTokenHandler(issuer)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

type devTokenRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

func (h *DevTokenHandler) IssueToken(c echo.Context) error {
	var req devTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	token, expiresAt, err := h.issuer.IssueToken(req.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{
		"token":      token,
		"user_id":    req.UserID,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}
