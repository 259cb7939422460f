package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holistic-planner/internal/modules/sequences"
)

func setupTestService() *sequences.Service {
	return sequences.NewService(zerolog.Nop())
}

func post(t *testing.T, handler http.HandlerFunc, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	bodyBytes, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()
	handler(w, req)

	var response map[string]interface{}
	if w.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	}
	return w, response
}

func TestHandleGenerate(t *testing.T) {
	handler := NewHandler(setupTestService(), zerolog.Nop())

	body := map[string]interface{}{
		"opportunities": map[string]interface{}{
			"averaging_down": []interface{}{
				map[string]interface{}{"side": "BUY", "symbol": "DIP", "quantity": 2, "price": 100, "value_eur": 200, "priority": 0.8},
			},
			"profit_taking": []interface{}{
				map[string]interface{}{"side": "SELL", "symbol": "WIN", "quantity": 1, "price": 300, "value_eur": 300, "priority": 0.9},
			},
		},
		"context": map[string]interface{}{
			"available_cash_eur": 500,
			"securities": []interface{}{
				map[string]interface{}{"symbol": "DIP", "country": "US", "allow_buy": true, "allow_sell": true},
				map[string]interface{}{"symbol": "WIN", "country": "DE", "allow_buy": true, "allow_sell": true},
			},
		},
	}

	w, response := post(t, handler.HandleGenerate, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	data := response["data"].(map[string]interface{})
	assert.Greater(t, data["count"].(float64), 0.0)
	assert.Contains(t, response, "metadata")
}

func TestHandleGenerate_NoOpportunities(t *testing.T) {
	handler := NewHandler(setupTestService(), zerolog.Nop())

	w, response := post(t, handler.HandleGenerate, map[string]interface{}{"opportunities": map[string]interface{}{}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, response["data"].(map[string]interface{})["count"])
}

func TestHandleGenerate_InvalidConfig(t *testing.T) {
	handler := NewHandler(setupTestService(), zerolog.Nop())

	w, _ := post(t, handler.HandleGenerate, map[string]interface{}{
		"config": map[string]interface{}{"max_depth": 0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGenerate_BadBody(t *testing.T) {
	handler := NewHandler(setupTestService(), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	handler.HandleGenerate(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleFilter(t *testing.T) {
	handler := NewHandler(setupTestService(), zerolog.Nop())

	seq := map[string]interface{}{
		"actions": []interface{}{map[string]interface{}{"side": "BUY", "symbol": "DIP", "quantity": 1}},
	}
	w, response := post(t, handler.HandleFilter, map[string]interface{}{
		"sequences": []interface{}{seq, seq, map[string]interface{}{"actions": []interface{}{}}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["count"])
	assert.Equal(t, 2.0, data["removed"])
}

func TestHandleGetInfo(t *testing.T) {
	handler := NewHandler(setupTestService(), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/sequences/info", nil)
	w := httptest.NewRecorder()
	handler.HandleGetInfo(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	assert.Len(t, data["patterns"], 12)
	assert.Len(t, data["generators"], 4)
	assert.Len(t, data["filters"], 2)
}
