package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ioutracker/internal/adapter/http/dto"
	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	CreateEntry(ctx context.Context, input usecase.CreateEntryInput) (*domain.Entry, error)
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error)
	GetEntry(ctx context.Context, id string) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, id string) (*domain.Entry, error)
	UpdateDescription(ctx context.Context, id, description string) (*domain.Entry, error)
}

// EntryHandler handles entry-related HTTP requests.
type EntryHandler struct {
	entryUC EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService) *EntryHandler {
	return &EntryHandler{entryUC: entryUC}
}

// Create records a new debt.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.entryUC.CreateEntry(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to add entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// List lists active entries, optionally filtered by user1, user2 and
// conversation_id query parameters.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.entryUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		ConversationID: q.Get("conversation_id"),
		User1:          q.Get("user1"),
		User2:          q.Get("user2"),
	})
	if err != nil {
		writeDomainError(w, "failed to get entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Get retrieves an entry by ID.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.entryUC.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Delete soft-deletes an entry by ID.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entry, err := h.entryUC.DeleteEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to delete entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// UpdateDescription replaces an entry's description.
func (h *EntryHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.entryUC.UpdateDescription(r.Context(), chi.URLParam(r, "id"), req.Description)
	if err != nil {
		writeDomainError(w, "failed to update entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}
