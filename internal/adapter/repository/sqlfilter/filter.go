// Package sqlfilter renders domain.EntryFilter as a SQL WHERE clause shared
// by the relational entry stores.
package sqlfilter

import (
	"strconv"
	"strings"

	"github.com/iho/ioutracker/internal/domain"
)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Dollar renders PostgreSQL style $n placeholders.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// Question renders positional ? placeholders.
func Question(int) string { return "?" }

// Builder accumulates conditions and their bind arguments. Every placeholder
// occurrence gets its own argument so positional drivers bind correctly.
type Builder struct {
	ph    Placeholder
	conds []string
	args  []any
}

// NewBuilder starts a builder. args are bound before any condition, which
// lets callers reserve leading parameters such as SET values.
func NewBuilder(ph Placeholder, args ...any) *Builder {
	return &Builder{ph: ph, args: append([]any(nil), args...)}
}

// Arg binds v and returns its placeholder.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	return b.ph(len(b.args))
}

// Entry adds the conditions selecting active entries matching f.
func (b *Builder) Entry(f domain.EntryFilter) *Builder {
	b.conds = append(b.conds, "deleted = false")

	if f.ConversationID != "" {
		b.conds = append(b.conds, "conversation_id = "+b.Arg(f.ConversationID))
	}
	if f.Participant != "" {
		b.conds = append(b.conds, "(sender = "+b.Arg(f.Participant)+" OR recipient = "+b.Arg(f.Participant)+")")
	}
	if f.Pair != nil {
		b.conds = append(b.conds,
			"((sender = "+b.Arg(f.Pair.A)+" AND recipient = "+b.Arg(f.Pair.B)+
				") OR (sender = "+b.Arg(f.Pair.B)+" AND recipient = "+b.Arg(f.Pair.A)+"))")
	}
	return b
}

// Where returns the rendered clause, including the WHERE keyword.
func (b *Builder) Where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// Args returns the bind arguments in placeholder order.
func (b *Builder) Args() []any {
	return b.args
}
