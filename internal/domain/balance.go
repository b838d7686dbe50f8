package domain

import "github.com/shopspring/decimal"

// CurrencyScale is the number of decimal places used for presentation.
const CurrencyScale = 2

// Balance is the derived net debt between two identities. It is never stored.
type Balance struct {
	OwingUser string
	OwedUser  string
	Amount    decimal.Decimal
}

// Rounded returns the balance with Amount rounded to currency scale.
func (b Balance) Rounded() Balance {
	b.Amount = b.Amount.Round(CurrencyScale)
	return b
}

// IsSettled reports whether nobody owes anything.
func (b Balance) IsSettled() bool {
	return b.Amount.IsZero()
}

// ComputeBalance nets two directional entry lists. aToB holds entries where
// the first identity owes the second, bToA the reverse. Identity labels are
// taken from the first element of aToB, or from bToA reversed when aToB is
// empty. On equal sums the first list's direction is reported with a zero
// amount. Two empty lists yield ErrNoRelationship.
func ComputeBalance(aToB, bToA []*Entry) (Balance, error) {
	var a, b string
	switch {
	case len(aToB) > 0:
		a, b = aToB[0].Sender, aToB[0].Recipient
	case len(bToA) > 0:
		a, b = bToA[0].Recipient, bToA[0].Sender
	default:
		return Balance{}, ErrNoRelationship
	}

	sumA := sumAmounts(aToB)
	sumB := sumAmounts(bToA)

	if sumB.GreaterThan(sumA) {
		return Balance{OwingUser: b, OwedUser: a, Amount: sumB.Sub(sumA)}, nil
	}

	return Balance{OwingUser: a, OwedUser: b, Amount: sumA.Sub(sumB)}, nil
}

// BalanceBetween partitions pair entries by direction and nets them with a
// as the first identity.
func BalanceBetween(entries []*Entry, a, b string) (Balance, error) {
	aToB, bToA := PartitionPair(entries, a, b)
	return ComputeBalance(aToB, bToA)
}

// PartitionPair splits entries into those where a owes b and those where b
// owes a. Entries not between a and b are dropped.
func PartitionPair(entries []*Entry, a, b string) (aToB, bToA []*Entry) {
	for _, e := range entries {
		switch {
		case e.Sender == a && e.Recipient == b:
			aToB = append(aToB, e)
		case e.Sender == b && e.Recipient == a:
			bToA = append(bToA, e)
		}
	}
	return aToB, bToA
}

func sumAmounts(entries []*Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}
