package model

import "time"

// Post categories. The board serves exactly two sections; category is stored
// as a plain string column and validated at the service layer.
const (
	CategoryAdmissions = "admissions"
	CategoryEnglish    = "english"
)

// Post is a blog article written by an admin.
type Post struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Author and Tags are joined in by the repository.
	Author Author   `json:"author"`
	Tags   []string `json:"tags"`
}

// Tag is a free-form label attached to posts. Names are unique; creating a
// post with an existing tag name links the existing row.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
