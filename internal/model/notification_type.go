package model

// Notification kinds, version 1. New kinds are appended; readers must treat
// anything they do not recognise as generic.
const (
	NotifyReuseItRequest      = "reuseit_request"
	NotifyReuseItApproved     = "reuseit_approved"
	NotifyReuseItDeclined     = "reuseit_declined"
	NotifyReuseItExchanged    = "reuseit_exchanged"
	NotifyYouthGigApplication = "youthgig_application"
	NotifyYouthGigSelected    = "youthgig_selected"
	NotifyYouthGigDeclined    = "youthgig_declined"
	NotifyYouthGigCompleted   = "youthgig_completed"
	NotifySkillSwapMatch      = "skillswap_match"
	NotifySkillSwapCompleted  = "skillswap_completed"
	NotifyMentorshipBooking   = "mentorship_booking"
	NotifyMentorshipConfirmed = "mentorship_confirmed"
	NotifyMentorshipDeclined  = "mentorship_declined"
	NotifyMentorshipCompleted = "mentorship_completed"
	NotifyChatMessage         = "chat_message"
	NotifyAnnouncement        = "announcement"
)

const CategoryGeneric = "generic"

var notificationCategories = map[string]string{
	NotifyReuseItRequest:      "reuseit",
	NotifyReuseItApproved:     "reuseit",
	NotifyReuseItDeclined:     "reuseit",
	NotifyReuseItExchanged:    "reuseit",
	NotifyYouthGigApplication: "youthgig",
	NotifyYouthGigSelected:    "youthgig",
	NotifyYouthGigDeclined:    "youthgig",
	NotifyYouthGigCompleted:   "youthgig",
	NotifySkillSwapMatch:      "skillswap",
	NotifySkillSwapCompleted:  "skillswap",
	NotifyMentorshipBooking:   "mentorship",
	NotifyMentorshipConfirmed: "mentorship",
	NotifyMentorshipDeclined:  "mentorship",
	NotifyMentorshipCompleted: "mentorship",
	NotifyChatMessage:         "chat",
	NotifyAnnouncement:        "announcement",
}

func IsKnownNotificationType(t string) bool {
	_, ok := notificationCategories[t]
	return ok
}

func CategoryOf(t string) string {
	if c, ok := notificationCategories[t]; ok {
		return c
	}
	return CategoryGeneric
}

// Related kinds tag the optional RelatedItemID reference.
const (
	RelatedItem         = "item"
	RelatedGig          = "gig"
	RelatedSwap         = "swap"
	RelatedSession      = "session"
	RelatedChat         = "chat"
	RelatedAnnouncement = "announcement"
)

func IsKnownRelatedKind(k string) bool {
	switch k {
	case RelatedItem, RelatedGig, RelatedSwap, RelatedSession, RelatedChat, RelatedAnnouncement:
		return true
	}
	return false
}
