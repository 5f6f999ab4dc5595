package contact

// Contact is a person named as the organizer of a calendar event.
type Contact struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
}
