package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/freeeve/iron-alliance/api/internal/service"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	data := map[string]string{"name": "test", "value": "42"}
	writeJSON(rec, http.StatusOK, data)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	ct := rec.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("expected Content-Type=application/json, got %s", ct)
	}

	var result map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["name"] != "test" || result["value"] != "42" {
		t.Errorf("unexpected body: %v", result)
	}
}

func TestWriteJSONWithStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]int{"id": 1})
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "missing field")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var result map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["error"] != "missing field" {
		t.Errorf("expected error=missing field, got %s", result["error"])
	}
}

func TestDecodeJSON(t *testing.T) {
	body := `{"name":"alice","age":30}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var data struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	if err := decodeJSON(req, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Name != "alice" {
		t.Errorf("expected name=alice, got %s", data.Name)
	}
	if data.Age != 30 {
		t.Errorf("expected age=30, got %d", data.Age)
	}
}

func TestDecodeJSONInvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	var data struct{}
	if err := decodeJSON(req, &data); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var data struct{}
	if err := decodeJSON(req, &data); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrGameNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", service.ErrSaveNotFound), http.StatusNotFound},
		{service.ErrNotPlayer, http.StatusForbidden},
		{fmt.Errorf("%w: france", service.ErrNotYourFaction), http.StatusForbidden},
		{service.ErrGameNotActive, http.StatusConflict},
		{service.ErrFactionTaken, http.StatusConflict},
		{campaign.ErrPartialReset, http.StatusConflict},
		{service.ErrInvalidTimeout, http.StatusBadRequest},
		{&campaign.RuleError{Kind: campaign.KindInvalidActionShape, Message: "x"}, http.StatusBadRequest},
		{&campaign.RuleError{Kind: campaign.KindNotCurrentActor}, http.StatusForbidden},
		{&campaign.RuleError{Kind: campaign.KindWrongPhase}, http.StatusConflict},
		{&campaign.RuleError{Kind: campaign.KindCannotUndo}, http.StatusConflict},
		{&campaign.RuleError{Kind: campaign.KindInsufficientResources}, http.StatusUnprocessableEntity},
		{&campaign.RuleError{Kind: campaign.KindIllegalPath}, http.StatusUnprocessableEntity},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteServiceError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/games/g/actions", nil)

	rec := httptest.NewRecorder()
	writeServiceError(rec, req, &campaign.RuleError{Kind: campaign.KindInsufficientResources, Message: "need 6 IPCs"})
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["kind"] != "insufficient_resources" {
		t.Errorf("expected kind in body, got %v", body)
	}

	rec = httptest.NewRecorder()
	writeServiceError(rec, req, errors.New("pq: password authentication failed"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("internal error details leaked: %s", rec.Body.String())
	}
}
