package domain

import "time"

// User is a registered participant. ConversationID links the user to the
// chat they registered from so notifications can reach them.
type User struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ConversationID *string
	Username       string
}
