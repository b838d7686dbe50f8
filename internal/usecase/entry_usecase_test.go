package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
	"github.com/iho/ioutracker/internal/usecase/mocks"
)

func TestEntryUseCase_CreateEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	entryRepo := mocks.NewMockEntryRepository(ctrl)
	recorder := mocks.NewMockRecorder(ctrl)

	entryRepo.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.Entry) (*domain.Entry, error) {
			if e.Sender != "alice" || e.Recipient != "bob" {
				t.Errorf("identities not normalized: %q -> %q", e.Sender, e.Recipient)
			}
			if !e.Amount.Equal(decimal.RequireFromString("1234.56")) {
				t.Errorf("unexpected amount %s", e.Amount)
			}
			stored := *e
			stored.ID = "e1"
			return &stored, nil
		})
	recorder.EXPECT().EntryCreated()

	uc := usecase.NewEntryUseCase(entryRepo, domain.Validator{}, recorder)

	entry, err := uc.CreateEntry(context.Background(), usecase.CreateEntryInput{
		Sender:     "@alice",
		Recipient:  "@bob",
		AmountText: "1,234.56",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID != "e1" {
		t.Errorf("expected e1, got %s", entry.ID)
	}
}

func TestEntryUseCase_CreateEntry_ValidationFailure(t *testing.T) {
	tests := []struct {
		name    string
		input   usecase.CreateEntryInput
		reason  string
		wantErr error
	}{
		{
			name:    "bad format",
			input:   usecase.CreateEntryInput{Sender: "a", Recipient: "b", AmountText: "12abc34"},
			reason:  "amount_format",
			wantErr: domain.ErrInvalidAmountFormat,
		},
		{
			name:    "non-positive",
			input:   usecase.CreateEntryInput{Sender: "a", Recipient: "b", Amount: decimal.NewFromInt(-5)},
			reason:  "amount",
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "self entry",
			input:   usecase.CreateEntryInput{Sender: "a", Recipient: "@a", Amount: decimal.NewFromInt(5)},
			reason:  "self_entry",
			wantErr: domain.ErrSelfEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			entryRepo := mocks.NewMockEntryRepository(ctrl)
			recorder := mocks.NewMockRecorder(ctrl)
			recorder.EXPECT().ValidationRejected(tt.reason)

			uc := usecase.NewEntryUseCase(entryRepo, domain.Validator{}, recorder)

			_, err := uc.CreateEntry(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEntryUseCase_ListEntries(t *testing.T) {
	tests := []struct {
		name   string
		input  usecase.ListEntriesInput
		filter domain.EntryFilter
	}{
		{
			name:   "no filter",
			input:  usecase.ListEntriesInput{},
			filter: domain.EntryFilter{},
		},
		{
			name:   "pair",
			input:  usecase.ListEntriesInput{User1: "@alice", User2: "bob"},
			filter: domain.EntryFilter{Pair: &domain.Pair{A: "alice", B: "bob"}},
		},
		{
			name:   "single participant",
			input:  usecase.ListEntriesInput{User1: "alice", ConversationID: "5.0"},
			filter: domain.EntryFilter{Participant: "alice", ConversationID: "5"},
		},
		{
			name:   "user2 only",
			input:  usecase.ListEntriesInput{User2: "bob"},
			filter: domain.EntryFilter{Participant: "bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			entryRepo := mocks.NewMockEntryRepository(ctrl)
			entryRepo.EXPECT().ListActive(gomock.Any(), tt.filter).Return([]*domain.Entry{{ID: "e1"}}, nil)

			uc := usecase.NewEntryUseCase(entryRepo, domain.Validator{}, nil)

			entries, err := uc.ListEntries(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(entries) != 1 {
				t.Errorf("expected 1 entry, got %d", len(entries))
			}
		})
	}
}

func TestEntryUseCase_DeleteEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	entryRepo := mocks.NewMockEntryRepository(ctrl)
	recorder := mocks.NewMockRecorder(ctrl)

	entryRepo.EXPECT().SoftDelete(gomock.Any(), "e1", gomock.Any()).Return(&domain.Entry{ID: "e1", Deleted: true}, nil)
	entryRepo.EXPECT().SoftDelete(gomock.Any(), "e1", gomock.Any()).Return(nil, domain.ErrEntryAlreadyDeleted)
	recorder.EXPECT().EntryDeleted().Times(1)

	uc := usecase.NewEntryUseCase(entryRepo, domain.Validator{}, recorder)

	entry, err := uc.DeleteEntry(context.Background(), "e1")
	if err != nil || !entry.Deleted {
		t.Fatalf("expected deleted entry, got %+v (%v)", entry, err)
	}

	if _, err := uc.DeleteEntry(context.Background(), "e1"); !errors.Is(err, domain.ErrEntryAlreadyDeleted) {
		t.Fatalf("expected ErrEntryAlreadyDeleted, got %v", err)
	}
}

func TestEntryUseCase_UpdateDescriptionNormalizes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	long := strings.Repeat("x", domain.MaxDescriptionLength+5)

	entryRepo := mocks.NewMockEntryRepository(ctrl)
	entryRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(&domain.Entry{ID: "e1"}, nil).Times(2)
	gomock.InOrder(
		entryRepo.EXPECT().UpdateDescription(gomock.Any(), "e1", "dinner").Return(&domain.Entry{ID: "e1"}, nil),
		entryRepo.EXPECT().UpdateDescription(gomock.Any(), "e1", long[:domain.MaxDescriptionLength]).Return(&domain.Entry{ID: "e1"}, nil),
	)

	uc := usecase.NewEntryUseCase(entryRepo, domain.Validator{}, nil)

	if _, err := uc.UpdateDescription(context.Background(), "e1", "  dinner  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uc.UpdateDescription(context.Background(), "e1", long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEntryUseCase_UpdateDescription(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	entryRepo := mocks.NewMockEntryRepository(ctrl)
	gomock.InOrder(
		entryRepo.EXPECT().GetByID(gomock.Any(), "e1").Return(&domain.Entry{ID: "e1"}, nil),
		entryRepo.EXPECT().UpdateDescription(gomock.Any(), "e1", "groceries").Return(&domain.Entry{ID: "e1", Description: "groceries"}, nil),
	)
	entryRepo.EXPECT().GetByID(gomock.Any(), "e2").Return(&domain.Entry{ID: "e2", Deleted: true}, nil)

	uc := usecase.NewEntryUseCase(entryRepo, domain.Validator{}, nil)

	entry, err := uc.UpdateDescription(context.Background(), "e1", "groceries")
	if err != nil || entry.Description != "groceries" {
		t.Fatalf("expected updated entry, got %+v (%v)", entry, err)
	}

	if _, err := uc.UpdateDescription(context.Background(), "e2", "x"); !errors.Is(err, domain.ErrEntryAlreadyDeleted) {
		t.Fatalf("expected ErrEntryAlreadyDeleted, got %v", err)
	}
}
