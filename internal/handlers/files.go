package handlers

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/sealdrop/sealdrop/internal/blob"
)

type fileRequest struct {
	Metadata      blob.FileMetadata `json:"metadata"`
	EncryptedData string            `json:"encryptedData"`
	Expiration    int64             `json:"expiration"`
	BurnAfterRead *bool             `json:"burnAfterRead,omitempty"`
}

type fileResponse struct {
	FileID    string `json:"fileId"`
	ExpiresAt int64  `json:"expiresAt"`
}

type encryptedFileResponse struct {
	EncryptedData string            `json:"encryptedData"`
	Metadata      blob.FileMetadata `json:"metadata"`
	CreatedAt     int64             `json:"createdAt"`
	ExpiresAt     int64             `json:"expiresAt"`
	BurnAfterRead bool              `json:"burnAfterRead"`
}

func (h *Handler) CreateFile(c echo.Context) error {
	var req fileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.EncryptedData == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing encryptedData"})
	}

	burn := true
	if req.BurnAfterRead != nil {
		burn = *req.BurnAfterRead
	}

	entry, err := h.engine.StoreFile(
		c.Request().Context(),
		[]byte(req.EncryptedData),
		req.Metadata,
		time.Duration(req.Expiration)*time.Second,
		burn,
	)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fileResponse{
		FileID:    entry.ID,
		ExpiresAt: entry.ExpiresAt.Unix(),
	})
}

func (h *Handler) GetFile(c echo.Context) error {
	entry, err := h.engine.FetchFile(c.Request().Context(), c.Param("id"), peekRequested(c))
	if err != nil {
		return errorResponse(c, err)
	}

	resp := encryptedFileResponse{
		EncryptedData: string(entry.Payload),
		CreatedAt:     entry.CreatedAt.Unix(),
		ExpiresAt:     entry.ExpiresAt.Unix(),
		BurnAfterRead: entry.BurnAfterRead,
	}
	if entry.Metadata != nil {
		resp.Metadata = *entry.Metadata
	}
	return c.JSON(http.StatusOK, resp)
}
