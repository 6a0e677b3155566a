// Package model contains simple struct definitions shared across packages.
package model

// BookSnapshot is a read-only, point-in-time view of a book's metadata and
// chapter content as supplied by the persistence layer. The export pipeline
// never mutates it.
type BookSnapshot struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Subtitle      string    `json:"subtitle,omitempty"`
	Author        string    `json:"author"`
	Synopsis      string    `json:"synopsis,omitempty"`
	Genre         string    `json:"genre,omitempty"`
	CopyrightLine string    `json:"copyrightLine,omitempty"`
	Chapters      []Chapter `json:"chapters"`
}

// Chapter is one unit of manuscript content in its book's native order.
type Chapter struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
}

// ChapterByID returns the chapter with the given id, or false when the book
// has no such chapter.
func (b *BookSnapshot) ChapterByID(id string) (Chapter, bool) {
	for _, ch := range b.Chapters {
		if ch.ID == id {
			return ch, true
		}
	}
	return Chapter{}, false
}
