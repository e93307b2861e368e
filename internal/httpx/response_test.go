package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusConflict, "busy", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "busy", body["error"])
	assert.NotContains(t, body, "details")
}

func TestJSONEncodeFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"encode_error"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		EAN string `json:"ean"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ean":"4007817327320"}`))
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, "4007817327320", dst.EAN)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.NoError(t, DecodeJSON(r, &dst))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":1}`))
	assert.Error(t, DecodeJSON(r, &dst))
}
