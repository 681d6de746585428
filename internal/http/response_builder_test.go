package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budgettracker/internal/core"
	"budgettracker/internal/services"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Cookie(&http.Cookie{Name: "k", Value: "v"}).
		JSON(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), "k=v") {
		t.Errorf("Set-Cookie = %q", w.Header().Get("Set-Cookie"))
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NoContent().Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
	if w.Header().Get("Content-Type") != "" {
		t.Errorf("Content-Type should be unset, got %q", w.Header().Get("Content-Type"))
	}
}

func TestResponseBuilder_UnencodableBody(t *testing.T) {
	w := httptest.NewRecorder()
	OK(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantMsg   string
		wantField string
	}{
		{"validation", core.Invalid("amount", core.ErrInvalidAmount), http.StatusBadRequest, "invalid amount", "amount"},
		{"wrapped validation", fmt.Errorf("create: %w", core.Invalid("month", core.ErrInvalidMonth)), http.StatusBadRequest, "invalid month", "month"},
		{"constraint", core.Conflictf("a budget for Food already exists for 03/2025"), http.StatusConflict, "a budget for Food already exists for 03/2025", ""},
		{"raw conflict", errors.Join(core.ErrConflict, errors.New("UNIQUE constraint failed: users.email")), http.StatusConflict, "resource already exists", ""},
		{"bad credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password", ""},
		{"unauthenticated", fmt.Errorf("%w: session expired", core.ErrUnauthenticated), http.StatusUnauthorized, "authentication required", ""},
		{"not found", fmt.Errorf("get budget 4: %w", core.ErrNotFound), http.StatusNotFound, "not found", ""},
		{"export disabled", services.ErrExportDisabled, http.StatusServiceUnavailable, services.ErrExportDisabled.Error(), ""},
		{"unexpected", errors.New("disk I/O error at /var/lib/db"), http.StatusInternalServerError, "internal server error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			errorFor(tt.err).Write(w)

			if w.Code != tt.wantCode {
				t.Fatalf("Status code = %d, want %d", w.Code, tt.wantCode)
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.wantMsg {
				t.Errorf("Error = %q, want %q", body.Error, tt.wantMsg)
			}
			if body.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", body.Field, tt.wantField)
			}
		})
	}
}
