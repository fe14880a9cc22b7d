package models

import "time"

// ListingState tracks the message a publisher currently owns in its
// channel. MessageID is empty when no usable listing message exists.
type ListingState struct {
	MessageID      string    `json:"message_id,omitempty"`
	LastRenderedAt time.Time `json:"last_rendered_at"`
}
