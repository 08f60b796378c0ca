package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/freightmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectRequest struct {
	Reason string `json:"reason" binding:"required,max=10"`
	Pickup struct {
		Latitude *float64 `json:"latitude" binding:"omitempty,latitude"`
	} `json:"pickup"`
	Rating int `json:"rating" binding:"min=1,max=5"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req rejectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter()

	t.Run("reports every field by JSON path", func(t *testing.T) {
		w := postJSON(router, `{"reason":"","pickup":{"latitude":123},"rating":9}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)

		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"reason", "pickup.latitude", "rating"}, fields)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		w := postJSON(router, `{"reason":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeErrorCode(t, w))
	})

	t.Run("wrong JSON type", func(t *testing.T) {
		w := postJSON(router, `{"reason":"late","rating":"five"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeErrorCode(t, w))
	})

	t.Run("valid payload", func(t *testing.T) {
		w := postJSON(router, `{"reason":"late","rating":4}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleValidationError_BodyTooLarge(t *testing.T) {
	SetupValidator()
	router := gin.New()
	router.Use(BodyLimit(16))
	router.POST("/test", func(c *gin.Context) {
		var req rejectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"reason":"`+strings.Repeat("x", 64)+`"}`))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

type lengthRequest struct {
	Plate  string `json:"plate" binding:"len=7"`
	Weight int    `json:"weight" binding:"gt=0"`
	Type   string `json:"type" binding:"oneof=flatbed reefer"`
}

func TestRuleMessages(t *testing.T) {
	SetupValidator()
	err := binding.Validator.ValidateStruct(lengthRequest{Plate: "KCA", Type: "van"})
	require.Error(t, err)

	resp := FormatValidationErrors(err, "req-1")
	require.NotNil(t, resp.Error)
	got := map[string]string{}
	for _, d := range resp.Error.Details {
		got[d.Field] = d.Message
	}
	assert.Equal(t, map[string]string{
		"plate":  "Must be exactly 7 characters",
		"weight": "Must be greater than 0",
		"type":   "Must be one of: flatbed reefer",
	}, got)
}
