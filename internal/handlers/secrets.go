package handlers

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
)

type secretRequest struct {
	EncryptedSecret string `json:"encryptedSecret"`
	Expiration      int64  `json:"expiration"`
	BurnAfterRead   *bool  `json:"burnAfterRead,omitempty"`
}

type secretResponse struct {
	SecretID  string `json:"secretId"`
	ExpiresAt int64  `json:"expiresAt"`
}

type encryptedSecretResponse struct {
	EncryptedSecret string `json:"encryptedSecret"`
	CreatedAt       int64  `json:"createdAt"`
	ExpiresAt       int64  `json:"expiresAt"`
	BurnAfterRead   bool   `json:"burnAfterRead"`
}

func (h *Handler) CreateSecret(c echo.Context) error {
	var req secretRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.EncryptedSecret == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing encryptedSecret"})
	}

	burn := true
	if req.BurnAfterRead != nil {
		burn = *req.BurnAfterRead
	}

	entry, err := h.engine.StoreSecret(
		c.Request().Context(),
		[]byte(req.EncryptedSecret),
		time.Duration(req.Expiration)*time.Second,
		burn,
	)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, secretResponse{
		SecretID:  entry.ID,
		ExpiresAt: entry.ExpiresAt.Unix(),
	})
}

func (h *Handler) GetSecret(c echo.Context) error {
	entry, err := h.engine.FetchSecret(c.Request().Context(), c.Param("id"), peekRequested(c))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, encryptedSecretResponse{
		EncryptedSecret: string(entry.Payload),
		CreatedAt:       entry.CreatedAt.Unix(),
		ExpiresAt:       entry.ExpiresAt.Unix(),
		BurnAfterRead:   entry.BurnAfterRead,
	})
}
