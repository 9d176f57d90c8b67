package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"keyhaven/internal/models"
)

func TestMaskAPIKeyMasksTheRawValue(t *testing.T) {
	k := models.ApiKey{Key: "sk-abcdefghijklmnop"}
	masked := maskAPIKey(k)
	assert.Equal(t, maskKey(k.Key), masked.Key)
	assert.NotEqual(t, k.Key, masked.Key)
}

func TestValidateRangeAcceptsInBounds(t *testing.T) {
	assert.NoError(t, validateRange("priority", 1))
	assert.NoError(t, validateRange("priority", 100))
	assert.NoError(t, validateRange("priority", 50))
}

func TestValidateRangeRejectsOutOfBounds(t *testing.T) {
	assert.Error(t, validateRange("weight", 0))
	assert.Error(t, validateRange("weight", 101))
}

func TestKeyHandlerCreateRejectsEmptyKey(t *testing.T) {
	h := NewKeyHandler(nil, nil, nil)

	router := gin.New()
	router.POST("/keys", h.Create)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/keys", bytes.NewBufferString(`{"key":""}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "key is required")
}

func TestKeyHandlerCreateRejectsOutOfRangePriority(t *testing.T) {
	h := NewKeyHandler(nil, nil, nil)

	router := gin.New()
	router.POST("/keys", h.Create)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/keys", bytes.NewBufferString(`{"key":"sk-x","priority":500}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "priority must be in [1,100]")
}

func TestKeyHandlerImportRejectsEmptyBlob(t *testing.T) {
	h := NewKeyHandler(nil, nil, nil)

	router := gin.New()
	router.POST("/keys/import", h.Import)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/keys/import", bytes.NewBufferString(`{"keys":"   \n  \n"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no keys to import")
}
