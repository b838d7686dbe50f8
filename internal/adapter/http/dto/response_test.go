package dto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"999.999", "$1,000.00"},
		{"1234.5", "$1,234.50"},
		{"1234567.891", "$1,234,567.89"},
		{"-12.3", "-$12.30"},
	}

	for _, tt := range tests {
		if got := FormatMoney(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Fatalf("FormatMoney(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestEntryFromDomain(t *testing.T) {
	created := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
	entry := &domain.Entry{
		ID:             "e1",
		ConversationID: "c",
		Sender:         "alice",
		Recipient:      "bob",
		Amount:         decimal.RequireFromString("1234.5"),
		Description:    "rent",
		CreatedAt:      created,
	}

	resp := EntryFromDomain(entry)
	if resp.ID != "e1" || resp.AmountStr != "$1,234.50" || resp.FormattedDate != "2024-03-09" {
		t.Fatalf("unexpected entry response: %+v", resp)
	}

	list := EntriesFromDomain([]*domain.Entry{entry})
	if len(list) != 1 || list[0].ID != "e1" {
		t.Fatalf("EntriesFromDomain returned %+v", list)
	}
}

func TestBalanceFromDomainRounds(t *testing.T) {
	resp := BalanceFromDomain(domain.Balance{
		OwingUser: "bob",
		OwedUser:  "alice",
		Amount:    decimal.RequireFromString("10.005"),
	})

	if resp.OwingUser != "bob" || resp.Amount.String() != "10.01" || resp.AmountStr != "$10.01" || resp.Even {
		t.Fatalf("unexpected balance response: %+v", resp)
	}

	even := BalanceFromDomain(domain.Balance{OwingUser: "bob", OwedUser: "alice", Amount: decimal.RequireFromString("0.004")})
	if !even.Even || even.AmountStr != "$0.00" {
		t.Fatalf("expected even balance, got %+v", even)
	}
}

func TestSplitFromResult(t *testing.T) {
	resp := SplitFromResult(&usecase.SplitResult{
		Participants: []string{"p", "x", "y"},
		PerShare:     decimal.NewFromInt(10),
		Total:        decimal.NewFromInt(30),
	})

	if resp.Message != "Split successful" || resp.AmountStr != "$30.00" || resp.SplitPerUserStr != "$10.00" {
		t.Fatalf("unexpected split response: %+v", resp)
	}
	if len(resp.Entries) != 0 || len(resp.Participants) != 3 {
		t.Fatalf("unexpected split payload: %+v", resp)
	}
}

func TestSettleFromResult(t *testing.T) {
	resp := SettleFromResult(&usecase.SettlementResult{
		Message: "Settled 2 transactions between alice and bob",
		Settled: 2,
		Balance: domain.Balance{OwingUser: "alice", OwedUser: "bob", Amount: decimal.NewFromInt(5)},
	})

	if resp.Settled != 2 || resp.Balance.OwingUser != "alice" || resp.Balance.AmountStr != "$5.00" {
		t.Fatalf("unexpected settle response: %+v", resp)
	}
}

func TestUserFromDomain(t *testing.T) {
	chat := "7"
	resp := UserFromDomain(&domain.User{Username: "alice", ConversationID: &chat})
	if resp.Username != "alice" || resp.ConversationID == nil || *resp.ConversationID != "7" {
		t.Fatalf("unexpected user response: %+v", resp)
	}
}
