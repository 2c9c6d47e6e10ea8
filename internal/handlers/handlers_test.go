package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealdrop/sealdrop/internal/blob"
	"github.com/sealdrop/sealdrop/internal/engine"
	"github.com/sealdrop/sealdrop/internal/quota"
	"github.com/sealdrop/sealdrop/internal/store/memory"
)

const testMaxPayload = 1024

func setupTest() *echo.Echo {
	e := echo.New()
	repo := blob.NewRepository(memory.New(), testMaxPayload, 7*24*time.Hour)
	eng := engine.New(repo, quota.NewEnforcer(testMaxPayload), time.Second)
	New(eng).Register(e)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetSecret(t *testing.T) {
	e := setupTest()

	rec := doJSON(e, http.MethodPost, "/v1/secrets",
		`{"encryptedSecret":"dGVzdCBjaXBoZXJ0ZXh0","expiration":60}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		SecretID  string `json:"secretId"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.SecretID, "sps-"))
	assert.InDelta(t, time.Now().Add(60*time.Second).Unix(), created.ExpiresAt, 2)

	rec = doJSON(e, http.MethodGet, "/v1/secrets/"+created.SecretID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched struct {
		EncryptedSecret string `json:"encryptedSecret"`
		CreatedAt       int64  `json:"createdAt"`
		ExpiresAt       int64  `json:"expiresAt"`
		BurnAfterRead   bool   `json:"burnAfterRead"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, "dGVzdCBjaXBoZXJ0ZXh0", fetched.EncryptedSecret)
	assert.True(t, fetched.BurnAfterRead)
	assert.Equal(t, created.ExpiresAt, fetched.ExpiresAt)

	// Burned: the second read is indistinguishable from never-existed.
	rec = doJSON(e, http.MethodGet, "/v1/secrets/"+created.SecretID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPeekDoesNotBurn(t *testing.T) {
	e := setupTest()

	rec := doJSON(e, http.MethodPost, "/v1/secrets",
		`{"encryptedSecret":"c2VjcmV0","expiration":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		SecretID string `json:"secretId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	for range 3 {
		rec = doJSON(e, http.MethodGet, "/v1/secrets/"+created.SecretID+"?peek=true", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "c2VjcmV0")
	}

	rec = doJSON(e, http.MethodGet, "/v1/secrets/"+created.SecretID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBurnAfterReadFalse(t *testing.T) {
	e := setupTest()

	rec := doJSON(e, http.MethodPost, "/v1/secrets",
		`{"encryptedSecret":"c2VjcmV0","expiration":60,"burnAfterRead":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		SecretID string `json:"secretId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	for range 3 {
		rec = doJSON(e, http.MethodGet, "/v1/secrets/"+created.SecretID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"burnAfterRead":false`)
	}
}

func TestCreateSecretValidation(t *testing.T) {
	e := setupTest()

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"missing secret", `{"expiration":60}`, http.StatusBadRequest},
		{"zero expiration", `{"encryptedSecret":"eA","expiration":0}`, http.StatusBadRequest},
		{"negative expiration", `{"encryptedSecret":"eA","expiration":-5}`, http.StatusBadRequest},
		{"expiration over maximum", `{"encryptedSecret":"eA","expiration":99999999}`, http.StatusBadRequest},
		{"malformed json", `{"encryptedSecret":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/v1/secrets", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestCreateSecretTooLarge(t *testing.T) {
	e := setupTest()

	body, err := json.Marshal(map[string]any{
		"encryptedSecret": strings.Repeat("a", testMaxPayload+1),
		"expiration":      60,
	})
	require.NoError(t, err)

	rec := doJSON(e, http.MethodPost, "/v1/secrets", string(body))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFileLifecycle(t *testing.T) {
	e := setupTest()

	rec := doJSON(e, http.MethodPost, "/v1/files",
		`{"metadata":{"originalFilename":"a.txt","contentType":"text/plain","sizeBytes":10},"encryptedData":"ZmlsZSBieXRlcw","expiration":60}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		FileID string `json:"fileId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.FileID, "spf-"))

	rec = doJSON(e, http.MethodGet, "/v1/files/"+created.FileID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched struct {
		EncryptedData string            `json:"encryptedData"`
		Metadata      blob.FileMetadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, "ZmlsZSBieXRlcw", fetched.EncryptedData)
	assert.Equal(t, "a.txt", fetched.Metadata.Filename)
	assert.Equal(t, "text/plain", fetched.Metadata.ContentType)
	assert.Equal(t, int64(10), fetched.Metadata.SizeBytes)

	rec = doJSON(e, http.MethodGet, "/v1/files/"+created.FileID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNamespacesDoNotCross(t *testing.T) {
	e := setupTest()

	rec := doJSON(e, http.MethodPost, "/v1/secrets",
		`{"encryptedSecret":"c2VjcmV0","expiration":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		SecretID string `json:"secretId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// A secret id must not resolve as a file, and the miss must not burn it.
	rec = doJSON(e, http.MethodGet, "/v1/files/"+created.SecretID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(e, http.MethodGet, "/v1/secrets/"+created.SecretID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUnknownID(t *testing.T) {
	e := setupTest()

	for _, path := range []string{
		"/v1/secrets/sps-AAAAAAAAAAAAAAAAAAAAAA",
		"/v1/secrets/garbage",
		"/v1/files/spf-AAAAAAAAAAAAAAAAAAAAAA",
	} {
		rec := doJSON(e, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, "path %s", path)
		assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	e := setupTest()
	rec := doJSON(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
