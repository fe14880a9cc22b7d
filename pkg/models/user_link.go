package models

// UserLink associates a Discord member with a VATSIM account. VatsimID is
// the only field guaranteed to be present; links created by an admin on
// behalf of someone outside the guild carry only a username hint. The json
// field names are fixed for compatibility with existing user data files.
type UserLink struct {
	DiscordID string `json:"discordId,omitempty"`
	Username  string `json:"username,omitempty"`
	VatsimID  int    `json:"vatsimId"`
}
