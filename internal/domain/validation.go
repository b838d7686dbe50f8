package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxIdentityLength    = 64
	MaxDescriptionLength = 1024
	IdentityMarker       = "@"

	// MaxAmountScale and MaxAmountDigits match the NUMERIC(20, 8) amount
	// column, so every store keeps exactly the value that was validated.
	MaxAmountScale  = 8
	MaxAmountDigits = 12
)

// maxAmount is the exclusive upper bound, 10^MaxAmountDigits.
var maxAmount = decimal.New(1, MaxAmountDigits)

var (
	amountNoise   = regexp.MustCompile(`[^\d.\-]`)
	numericString = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// ParseAmount parses free-text amount input such as "1,234.56" or "$20".
// Letters are a format error; other separators and symbols are dropped.
func ParseAmount(text string) (decimal.Decimal, error) {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, text)
		}
	}

	cleaned := amountNoise.ReplaceAllString(text, "")
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, text)
	}

	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	return amount, nil
}

// ValidateAmount validates a pre-parsed amount: positive, at most
// MaxAmountScale decimal places and below 10^MaxAmountDigits.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return fmt.Errorf("%w: more than %d decimal places", ErrAmountOutOfRange, MaxAmountScale)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: must be below %s", ErrAmountOutOfRange, maxAmount)
	}
	return nil
}

// NormalizeIdentity strips surrounding whitespace and the social-handle
// marker so "@alice" and "alice" compare equal.
func NormalizeIdentity(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, IdentityMarker)
	name = strings.TrimSpace(name)

	if name == "" {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidIdentity)
	}
	if len(name) > MaxIdentityLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidIdentity, MaxIdentityLength)
	}
	if strings.ContainsFunc(name, unicode.IsSpace) {
		return "", fmt.Errorf("%w: name contains whitespace", ErrInvalidIdentity)
	}

	return name, nil
}

// NormalizeConversationID converts a string or numeric conversation id into
// its canonical string form. Integral values lose any fractional suffix,
// so 1, "1" and "1.0" all normalize to "1". nil normalizes to "".
func NormalizeConversationID(v any) (string, error) {
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return normalizeConversationString(id)
	case json.Number:
		return normalizeConversationNumber(id.String())
	case int:
		return strconv.FormatInt(int64(id), 10), nil
	case int32:
		return strconv.FormatInt(int64(id), 10), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case float32:
		return normalizeConversationFloat(float64(id))
	case float64:
		return normalizeConversationFloat(id)
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidConversationID, v)
	}
}

func normalizeConversationString(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !numericString.MatchString(s) {
		return s, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidConversationID, s)
	}
	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String(), nil
	}
	return d.String(), nil
}

// normalizeConversationNumber handles JSON number literals, including
// exponent forms such as 1e3.
func normalizeConversationNumber(s string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidConversationID, s)
	}
	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String(), nil
	}
	return d.String(), nil
}

func normalizeConversationFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrInvalidConversationID, f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// EntryDraft holds unvalidated entry fields as they arrive from a caller.
// AmountText, when set, takes precedence over Amount.
type EntryDraft struct {
	ConversationID string
	Sender         string
	Recipient      string
	Description    string
	AmountText     string
	Amount         decimal.Decimal
}

// Validator turns drafts into entries ready for persistence.
type Validator struct {
	// AllowSelfEntries permits sender == recipient (notes to self).
	AllowSelfEntries bool
}

// ValidateEntry returns a normalized entry or the first validation failure.
// It does not assign ID or CreatedAt.
func (v Validator) ValidateEntry(d EntryDraft) (*Entry, error) {
	amount := d.Amount
	if d.AmountText != "" {
		parsed, err := ParseAmount(d.AmountText)
		if err != nil {
			return nil, err
		}
		amount = parsed
	} else if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	sender, err := NormalizeIdentity(d.Sender)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}

	recipient, err := NormalizeIdentity(d.Recipient)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}

	if sender == recipient && !v.AllowSelfEntries {
		return nil, ErrSelfEntry
	}

	conversationID, err := NormalizeConversationID(d.ConversationID)
	if err != nil {
		return nil, err
	}

	description := NormalizeDescription(d.Description)

	return &Entry{
		ConversationID: conversationID,
		Sender:         sender,
		Recipient:      recipient,
		Amount:         amount,
		Description:    description,
	}, nil
}

// NormalizeDescription trims surrounding whitespace and cuts the memo to
// MaxDescriptionLength runes.
func NormalizeDescription(description string) string {
	description = strings.TrimSpace(description)
	if runes := []rune(description); len(runes) > MaxDescriptionLength {
		description = string(runes[:MaxDescriptionLength])
	}
	return description
}
