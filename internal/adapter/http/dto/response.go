package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

// FormatMoney renders an amount as "$1,234.56".
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(domain.CurrencyScale)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Sender         string          `json:"sender"`
	Recipient      string          `json:"recipient"`
	Amount         decimal.Decimal `json:"amount"`
	AmountStr      string          `json:"amount_str"`
	Description    string          `json:"description"`
	CreatedAt      time.Time       `json:"created_at"`
	FormattedDate  string          `json:"formatted_date"`
	Deleted        bool            `json:"deleted"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:             e.ID,
		ConversationID: e.ConversationID,
		Sender:         e.Sender,
		Recipient:      e.Recipient,
		Amount:         e.Amount,
		AmountStr:      FormatMoney(e.Amount),
		Description:    e.Description,
		CreatedAt:      e.CreatedAt,
		FormattedDate:  e.CreatedAt.Format(time.DateOnly),
		Deleted:        e.Deleted,
		DeletedAt:      e.DeletedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// IOUStatusResponse is the net balance between two users.
type IOUStatusResponse struct {
	OwingUser string          `json:"owing_user"`
	OwedUser  string          `json:"owed_user"`
	Amount    decimal.Decimal `json:"amount"`
	AmountStr string          `json:"amount_str"`
	Even      bool            `json:"even"`
}

// BalanceFromDomain converts a balance to response, rounded to cents.
func BalanceFromDomain(b domain.Balance) IOUStatusResponse {
	b = b.Rounded()
	return IOUStatusResponse{
		OwingUser: b.OwingUser,
		OwedUser:  b.OwedUser,
		Amount:    b.Amount,
		AmountStr: FormatMoney(b.Amount),
		Even:      b.IsSettled(),
	}
}

// SplitResponse reports a completed split.
type SplitResponse struct {
	Message         string           `json:"message"`
	Amount          decimal.Decimal  `json:"amount"`
	AmountStr       string           `json:"amount_str"`
	SplitPerUser    decimal.Decimal  `json:"split_per_user"`
	SplitPerUserStr string           `json:"split_per_user_str"`
	Participants    []string         `json:"participants"`
	Entries         []*EntryResponse `json:"entries"`
}

// SplitFromResult converts a split result to response.
func SplitFromResult(r *usecase.SplitResult) *SplitResponse {
	return &SplitResponse{
		Message:         "Split successful",
		Amount:          r.Total,
		AmountStr:       FormatMoney(r.Total),
		SplitPerUser:    r.PerShare,
		SplitPerUserStr: FormatMoney(r.PerShare),
		Participants:    r.Participants,
		Entries:         EntriesFromDomain(r.Entries),
	}
}

// SettleResponse reports a completed settlement.
type SettleResponse struct {
	Message string            `json:"message"`
	Settled int               `json:"settled"`
	Failed  int               `json:"failed"`
	Balance IOUStatusResponse `json:"balance"`
}

// SettleFromResult converts a settlement result to response.
func SettleFromResult(r *usecase.SettlementResult) *SettleResponse {
	return &SettleResponse{
		Message: r.Message,
		Settled: r.Settled,
		Failed:  r.Failed,
		Balance: BalanceFromDomain(r.Balance),
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	Username       string  `json:"username"`
	ConversationID *string `json:"conversation_id"`
}

// UserFromDomain converts domain user to response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{Username: u.Username, ConversationID: u.ConversationID}
}

// UsersFromDomain converts domain users to responses.
func UsersFromDomain(users []*domain.User) []*UserResponse {
	result := make([]*UserResponse, len(users))
	for i, u := range users {
		result[i] = UserFromDomain(u)
	}
	return result
}

// VersionResponse reports the build version.
type VersionResponse struct {
	Version string `json:"version"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
