package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

// ConversationID accepts a JSON string, number or null. Numbers are
// normalized on decode, so 1000, 1000.0 and 1e3 are the same conversation.
type ConversationID string

// UnmarshalJSON implements json.Unmarshaler.
func (c *ConversationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ConversationID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidConversationID, data)
		}
		id, err := domain.NormalizeConversationID(n)
		if err != nil {
			return err
		}
		*c = ConversationID(id)
	}
	return nil
}

// Amount accepts either free text ("$1,234.56") or a JSON number.
type Amount struct {
	Text  string
	Value decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = Amount{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount{Text: s}
	default:
		v, err := decimal.NewFromString(string(data))
		if err != nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidAmountFormat, data)
		}
		*a = Amount{Value: v}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Text != "" {
		return json.Marshal(a.Text)
	}
	return []byte(a.Value.String()), nil
}

// CreateEntryRequest represents a request to record a debt.
type CreateEntryRequest struct {
	ConversationID ConversationID `json:"conversation_id"`
	Sender         string         `json:"sender"`
	Recipient      string         `json:"recipient"`
	Amount         Amount         `json:"amount"`
	Description    string         `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntryRequest) ToUseCaseInput() usecase.CreateEntryInput {
	return usecase.CreateEntryInput{
		ConversationID: string(r.ConversationID),
		Sender:         r.Sender,
		Recipient:      r.Recipient,
		Description:    r.Description,
		AmountText:     r.Amount.Text,
		Amount:         r.Amount.Value,
	}
}

// UpdateEntryRequest replaces an entry's description.
type UpdateEntryRequest struct {
	Description string `json:"description"`
}

// SplitRequest represents a bill shared evenly by participants.
type SplitRequest struct {
	ConversationID ConversationID `json:"conversation_id"`
	Payer          string         `json:"payer"`
	Amount         Amount         `json:"amount"`
	Participants   []string       `json:"participants"`
	Description    string         `json:"description"`
}

// ToUseCaseInput converts to use case input.
func (r *SplitRequest) ToUseCaseInput() usecase.SplitInput {
	return usecase.SplitInput{
		ConversationID: string(r.ConversationID),
		Payer:          r.Payer,
		Description:    r.Description,
		TotalText:      r.Amount.Text,
		Total:          r.Amount.Value,
		Participants:   r.Participants,
	}
}

// CreateUserRequest registers a user.
type CreateUserRequest struct {
	Username       string         `json:"username"`
	ConversationID ConversationID `json:"conversation_id,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateUserRequest) ToUseCaseInput() usecase.CreateUserInput {
	return usecase.CreateUserInput{
		Username:       r.Username,
		ConversationID: string(r.ConversationID),
	}
}

// UpdateUserRequest changes a user's conversation.
type UpdateUserRequest struct {
	ConversationID ConversationID `json:"conversation_id"`
}
