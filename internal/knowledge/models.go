package knowledge

import "time"

const Collection = "knowledge"

// Entry is one knowledge-base article the voice assistant and staff can consult.
type Entry struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category,omitempty"`
	Locale   string   `json:"locale,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type ListFilter struct {
	Category string
	Locale   string
	Limit    int
}
