package models

import "time"

// Post is a blog post joined with its author.
type Post struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	ImageURL  *string    `json:"image_url"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	AuthorID  int64      `json:"author_id"`
	Author    *User      `json:"author"`
}

// PostInput is the JSON body for POST /posts.
type PostInput struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	ImageURL *string `json:"image_url,omitempty"`
}

// PostPatch is the JSON body for PUT /posts/{id}. Nil fields are left untouched.
type PostPatch struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Empty reports whether the patch sets no field at all.
func (p PostPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.ImageURL == nil
}

// PostQuery selects a page of posts, newest first.
type PostQuery struct {
	Skip   int
	Limit  int
	Search string
}

// PostPage is the response body for GET /posts.
type PostPage struct {
	Items []Post `json:"items"`
	Total int    `json:"total"`
}

// ImageUpload is the response body for POST /images/upload.
type ImageUpload struct {
	URL string `json:"url"`
}
