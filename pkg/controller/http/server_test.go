package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/mnemosyne/pkg/controller/http"
	"github.com/secmon-lab/mnemosyne/pkg/repository/memory"
	"github.com/secmon-lab/mnemosyne/pkg/usecase"
)

func newServer(t *testing.T) *httpctrl.Server {
	t.Helper()
	uc, err := usecase.New(memory.New())
	gt.NoError(t, err).Required()
	return httpctrl.New(uc)
}

func TestHealth(t *testing.T) {
	srv := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	gt.Value(t, rec.Code).Equal(http.StatusOK)
}

func TestChat(t *testing.T) {
	srv := newServer(t)

	t.Run("valid message gets a reply", func(t *testing.T) {
		body, err := json.Marshal(map[string]string{"message": "hello"})
		gt.NoError(t, err).Required()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/chat", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var resp struct {
			Reply      string `json:"reply"`
			SessionID  string `json:"session_id"`
			TurnNumber int    `json:"turn_number"`
			State      struct {
				UserID string  `json:"user_id"`
				Energy float64 `json:"energy"`
			} `json:"state"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.String(t, resp.Reply).NotEqual("")
		gt.String(t, resp.SessionID).NotEqual("")
		gt.Value(t, resp.State.UserID).Equal("u1")
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		body := []byte(`{"message": ""}`)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/chat", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/chat", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestState(t *testing.T) {
	srv := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/state", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		UserID string  `json:"user_id"`
		Energy float64 `json:"energy"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Value(t, resp.UserID).Equal("u1")
	gt.Value(t, resp.Energy).Equal(float64(50))
}

func TestReset(t *testing.T) {
	srv := newServer(t)

	// Build some state first.
	body := []byte(`{"message": "thank you so much"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/reset", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/state", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		Trust float64 `json:"trust"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Value(t, resp.Trust).Equal(float64(0))
}
