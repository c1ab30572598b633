package model

// UserSummary is the public view of a user returned by the directory.
type UserSummary struct {
	UID         string
	DisplayName string
	PhotoURL    string
}
