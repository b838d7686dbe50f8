package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/ioutracker/internal/adapter/http/dto"
	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

type entryServiceStub struct {
	createFn func(ctx context.Context, input usecase.CreateEntryInput) (*domain.Entry, error)
	listFn   func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error)
	getFn    func(ctx context.Context, id string) (*domain.Entry, error)
	deleteFn func(ctx context.Context, id string) (*domain.Entry, error)
	updateFn func(ctx context.Context, id, description string) (*domain.Entry, error)
}

func (s *entryServiceStub) CreateEntry(ctx context.Context, input usecase.CreateEntryInput) (*domain.Entry, error) {
	return s.createFn(ctx, input)
}

func (s *entryServiceStub) ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error) {
	return s.listFn(ctx, input)
}

func (s *entryServiceStub) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	return s.getFn(ctx, id)
}

func (s *entryServiceStub) DeleteEntry(ctx context.Context, id string) (*domain.Entry, error) {
	return s.deleteFn(ctx, id)
}

func (s *entryServiceStub) UpdateDescription(ctx context.Context, id, description string) (*domain.Entry, error) {
	return s.updateFn(ctx, id, description)
}

func entryRouter(h *EntryHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/entries", h.Create)
	r.Get("/entries", h.List)
	r.Get("/entries/{id}", h.Get)
	r.Delete("/entries/{id}", h.Delete)
	r.Patch("/entries/{id}", h.UpdateDescription)
	return r
}

func sampleEntry(id string) *domain.Entry {
	return &domain.Entry{
		ID:        id,
		Sender:    "alice",
		Recipient: "bob",
		Amount:    decimal.RequireFromString("12.5"),
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestEntryHandler_Create_Success(t *testing.T) {
	var captured usecase.CreateEntryInput
	h := NewEntryHandler(&entryServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateEntryInput) (*domain.Entry, error) {
			captured = input
			return sampleEntry("e1"), nil
		},
	})

	body := `{"conversation_id": 99, "sender": "@alice", "recipient": "bob", "amount": "$12.50"}`
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(body))
	rec := httptest.NewRecorder()

	entryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.ConversationID != "99" || captured.AmountText != "$12.50" || captured.Sender != "@alice" {
		t.Fatalf("unexpected input: %+v", captured)
	}

	var resp dto.EntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "e1" || resp.AmountStr != "$12.50" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestEntryHandler_Create_ValidationError(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateEntryInput) (*domain.Entry, error) {
			return nil, domain.ErrInvalidAmountFormat
		},
	})

	body := `{"sender": "alice", "recipient": "bob", "amount": "ten"}`
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(body))
	rec := httptest.NewRecorder()

	entryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEntryHandler_Create_InvalidBody(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	entryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEntryHandler_List_PassesFilters(t *testing.T) {
	var captured usecase.ListEntriesInput
	h := NewEntryHandler(&entryServiceStub{
		listFn: func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error) {
			captured = input
			return []*domain.Entry{sampleEntry("e1"), sampleEntry("e2")}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/entries?user1=alice&user2=bob&conversation_id=7", nil)
	rec := httptest.NewRecorder()

	entryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.User1 != "alice" || captured.User2 != "bob" || captured.ConversationID != "7" {
		t.Fatalf("unexpected filters: %+v", captured)
	}

	var resp []dto.EntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp) != 2 {
		t.Fatalf("expected two entries, got %s (%v)", rec.Body.String(), err)
	}
}

func TestEntryHandler_Get_NotFound(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Entry, error) {
			return nil, domain.ErrEntryNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/entries/missing", nil)
	rec := httptest.NewRecorder()

	entryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEntryHandler_Delete(t *testing.T) {
	var deletedID string
	h := NewEntryHandler(&entryServiceStub{
		deleteFn: func(ctx context.Context, id string) (*domain.Entry, error) {
			deletedID = id
			if id == "gone" {
				return nil, domain.ErrEntryAlreadyDeleted
			}
			e := sampleEntry(id)
			e.Deleted = true
			return e, nil
		},
	})

	rec := httptest.NewRecorder()
	entryRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/entries/e1", nil))
	if rec.Code != http.StatusOK || deletedID != "e1" {
		t.Fatalf("expected 200 deleting e1, got %d (%s)", rec.Code, deletedID)
	}

	rec = httptest.NewRecorder()
	entryRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/entries/gone", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for already deleted entry, got %d", rec.Code)
	}
}

func TestEntryHandler_UpdateDescription(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		updateFn: func(ctx context.Context, id, description string) (*domain.Entry, error) {
			e := sampleEntry(id)
			e.Description = description
			return e, nil
		},
	})

	req := httptest.NewRequest(http.MethodPatch, "/entries/e1", strings.NewReader(`{"description":"lunch"}`))
	rec := httptest.NewRecorder()

	entryRouter(h).ServeHTTP(rec, req)

	var resp dto.EntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || resp.Description != "lunch" {
		t.Fatalf("unexpected response %d: %+v", rec.Code, resp)
	}
}
