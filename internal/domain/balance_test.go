package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func entry(sender, recipient, amount string) *Entry {
	return &Entry{Sender: sender, Recipient: recipient, Amount: decimal.RequireFromString(amount)}
}

func assertBalance(t *testing.T, got Balance, owing, owed, amount string) {
	t.Helper()
	if got.OwingUser != owing || got.OwedUser != owed {
		t.Fatalf("expected %s owes %s, got %s owes %s", owing, owed, got.OwingUser, got.OwedUser)
	}
	if !got.Amount.Equal(decimal.RequireFromString(amount)) {
		t.Fatalf("expected amount %s, got %s", amount, got.Amount)
	}
}

func TestComputeBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		aToB   []*Entry
		bToA   []*Entry
		owing  string
		owed   string
		amount string
	}{
		{
			name:  "first side larger",
			aToB:  []*Entry{entry("alice", "bob", "20")},
			bToA:  []*Entry{entry("bob", "alice", "5")},
			owing: "alice", owed: "bob", amount: "15",
		},
		{
			name:  "second side larger",
			aToB:  []*Entry{entry("alice", "bob", "5")},
			bToA:  []*Entry{entry("bob", "alice", "12.5")},
			owing: "bob", owed: "alice", amount: "7.5",
		},
		{
			name:  "equal sums report first direction",
			aToB:  []*Entry{entry("alice", "bob", "15"), entry("alice", "bob", "10")},
			bToA:  []*Entry{entry("bob", "alice", "25")},
			owing: "alice", owed: "bob", amount: "0",
		},
		{
			name:  "one sided second list",
			bToA:  []*Entry{entry("bob", "alice", "30")},
			owing: "bob", owed: "alice", amount: "30",
		},
		{
			name:  "one sided first list",
			aToB:  []*Entry{entry("alice", "bob", "1.10"), entry("alice", "bob", "2.20")},
			owing: "alice", owed: "bob", amount: "3.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeBalance(tt.aToB, tt.bToA)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertBalance(t, got, tt.owing, tt.owed, tt.amount)
		})
	}
}

func TestComputeBalance_NoData(t *testing.T) {
	t.Parallel()

	_, err := ComputeBalance(nil, []*Entry{})
	if !errors.Is(err, ErrNoRelationship) {
		t.Fatalf("expected ErrNoRelationship, got %v", err)
	}
}

func TestComputeBalance_Symmetry(t *testing.T) {
	t.Parallel()

	aToB := []*Entry{entry("alice", "bob", "40"), entry("alice", "bob", "2.5")}
	bToA := []*Entry{entry("bob", "alice", "12")}

	forward, err := ComputeBalance(aToB, bToA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	swapped, err := ComputeBalance(bToA, aToB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if forward.OwingUser != swapped.OwingUser || forward.OwedUser != swapped.OwedUser {
		t.Fatalf("direction depends on argument order: %+v vs %+v", forward, swapped)
	}
	if !forward.Amount.Equal(swapped.Amount) {
		t.Fatalf("amount depends on argument order: %s vs %s", forward.Amount, swapped.Amount)
	}
}

func TestComputeBalance_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := []*Entry{entry("alice", "bob", "1"), entry("alice", "bob", "2"), entry("alice", "bob", "3")}
	reversed := []*Entry{a[2], a[1], a[0]}

	first, _ := ComputeBalance(a, nil)
	second, _ := ComputeBalance(reversed, nil)
	if !first.Amount.Equal(second.Amount) {
		t.Fatalf("expected equal sums, got %s and %s", first.Amount, second.Amount)
	}
}

func TestBalance_Rounded(t *testing.T) {
	t.Parallel()

	b := Balance{OwingUser: "a", OwedUser: "b", Amount: decimal.RequireFromString("3.33333")}
	if got := b.Rounded().Amount; !got.Equal(decimal.RequireFromString("3.33")) {
		t.Fatalf("expected 3.33, got %s", got)
	}
	if !b.Amount.Equal(decimal.RequireFromString("3.33333")) {
		t.Fatal("Rounded must not mutate the receiver")
	}
}

func TestBalanceBetween(t *testing.T) {
	t.Parallel()

	entries := []*Entry{
		entry("alice", "bob", "20"),
		entry("carol", "alice", "99"),
		entry("bob", "alice", "5"),
	}

	got, err := BalanceBetween(entries, "bob", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertBalance(t, got, "alice", "bob", "15")

	if _, err := BalanceBetween(entries, "bob", "carol"); !errors.Is(err, ErrNoRelationship) {
		t.Fatalf("expected ErrNoRelationship, got %v", err)
	}
}

func TestEntryFilter_Matches(t *testing.T) {
	t.Parallel()

	e := &Entry{ConversationID: "1", Sender: "alice", Recipient: "bob"}

	if !(EntryFilter{}).Matches(e) {
		t.Fatal("zero filter should match")
	}
	if !(EntryFilter{Pair: &Pair{A: "bob", B: "alice"}}).Matches(e) {
		t.Fatal("pair filter is unordered")
	}
	if (EntryFilter{Participant: "carol"}).Matches(e) {
		t.Fatal("participant filter should exclude carol")
	}
	if (EntryFilter{ConversationID: "2"}).Matches(e) {
		t.Fatal("conversation filter should exclude other chats")
	}

	e.Deleted = true
	if (EntryFilter{}).Matches(e) {
		t.Fatal("deleted entries never match")
	}
}
