package models

// MemberRecord is a guild member as seen by the chat platform. DisplayName
// is the member's nickname when set, otherwise their account username.
type MemberRecord struct {
	ID          string
	DisplayName string
}
