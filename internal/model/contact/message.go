package contact

import "time"

// Message is a contact submission after it has been accepted and stored.
type Message struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Message   string    `json:"message" db:"message"`
	Category  string    `json:"category,omitempty" db:"category"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Submission holds the visitor-supplied fields before an id and timestamp are assigned.
type Submission struct {
	Name    string
	Email   string
	Message string
}

// Complete reports whether all submitter-supplied fields are present.
func (s Submission) Complete() bool {
	return s.Name != "" && s.Email != "" && s.Message != ""
}
