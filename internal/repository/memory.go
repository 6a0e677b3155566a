package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/bookbloom/bookbloom/internal/model"
)

// MemoryBookStore is the database-free book store used when no Postgres DSN
// is configured and throughout the tests. RWMutex differentiates read locks
// (many concurrent readers) from write locks (single writer), which suits
// the read-heavy API.
type MemoryBookStore struct {
	mu    sync.RWMutex
	books map[string]*model.BookSnapshot
}

// NewMemoryBookStore constructs a MemoryBookStore.
func NewMemoryBookStore() *MemoryBookStore {
	return &MemoryBookStore{books: make(map[string]*model.BookSnapshot)}
}

// Create inserts or replaces a book.
func (m *MemoryBookStore) Create(_ context.Context, book *model.BookSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := cloneBook(book)
	m.books[book.ID] = stored
	return nil
}

// BookSnapshot returns a deep copy so callers cannot mutate stored state.
func (m *MemoryBookStore) BookSnapshot(_ context.Context, id string) (*model.BookSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	book, ok := m.books[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return cloneBook(book), nil
}

// AppendChapters adds chapters after the book's current last chapter.
func (m *MemoryBookStore) AppendChapters(_ context.Context, bookID string, chapters []model.Chapter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[bookID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, bookID)
	}
	book.Chapters = append(book.Chapters, chapters...)
	return nil
}

func cloneBook(book *model.BookSnapshot) *model.BookSnapshot {
	out := *book
	out.Chapters = make([]model.Chapter, len(book.Chapters))
	copy(out.Chapters, book.Chapters)
	return &out
}
