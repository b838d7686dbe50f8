package handler

import (
	"context"
	"net/http"

	"github.com/iho/ioutracker/internal/adapter/http/dto"
	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

// BalanceService defines the behavior needed for balance queries.
type BalanceService interface {
	GetBalance(ctx context.Context, input usecase.GetBalanceInput) (domain.Balance, error)
}

// SplitService defines the behavior needed for bill splits.
type SplitService interface {
	Split(ctx context.Context, input usecase.SplitInput) (*usecase.SplitResult, error)
}

// SettlementService defines the behavior needed for settlements.
type SettlementService interface {
	Settle(ctx context.Context, input usecase.SettleInput) (*usecase.SettlementResult, error)
}

// IOUHandler serves balance, split and settle requests.
type IOUHandler struct {
	balanceUC    BalanceService
	splitUC      SplitService
	settlementUC SettlementService
}

// NewIOUHandler creates a new IOUHandler.
func NewIOUHandler(balanceUC BalanceService, splitUC SplitService, settlementUC SettlementService) *IOUHandler {
	return &IOUHandler{
		balanceUC:    balanceUC,
		splitUC:      splitUC,
		settlementUC: settlementUC,
	}
}

// Status returns the net balance between user1 and user2.
func (h *IOUHandler) Status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("user1") == "" || q.Get("user2") == "" {
		writeError(w, http.StatusBadRequest, "missing user1 or user2", "")
		return
	}

	balance, err := h.balanceUC.GetBalance(r.Context(), usecase.GetBalanceInput{
		ConversationID: q.Get("conversation_id"),
		User1:          q.Get("user1"),
		User2:          q.Get("user2"),
	})
	if err != nil {
		writeDomainError(w, "failed to get status", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance))
}

// Split divides a bill evenly and records each share.
func (h *IOUHandler) Split(w http.ResponseWriter, r *http.Request) {
	var req dto.SplitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.splitUC.Split(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to split", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SplitFromResult(result))
}

// Settle clears every active entry between user1 and user2.
func (h *IOUHandler) Settle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("user1") == "" || q.Get("user2") == "" {
		writeError(w, http.StatusBadRequest, "missing user1 or user2", "")
		return
	}

	result, err := h.settlementUC.Settle(r.Context(), usecase.SettleInput{
		ConversationID: q.Get("conversation_id"),
		User1:          q.Get("user1"),
		User2:          q.Get("user2"),
	})
	if err != nil {
		writeDomainError(w, "failed to settle", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettleFromResult(result))
}
