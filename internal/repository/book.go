package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookbloom/bookbloom/internal/model"
)

// ErrNotFound is returned when a book id has no row.
var ErrNotFound = errors.New("book not found")

// BookRepository wraps all SQL used by the API, worker, and CLI. It also
// serves as the export service's BookSource.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository constructs a repository.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

// Create inserts a book and its chapters in one transaction.
func (r *BookRepository) Create(ctx context.Context, book *model.BookSnapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO books (id, title, subtitle, author, synopsis, genre, copyright_line, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
	`, book.ID, book.Title, book.Subtitle, book.Author, book.Synopsis, book.Genre, book.CopyrightLine, now)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	for i, ch := range book.Chapters {
		_, err = tx.Exec(ctx, `
			INSERT INTO chapters (id, book_id, position, title, content, word_count)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, ch.ID, book.ID, i+1, ch.Title, ch.Content, ch.WordCount)
		if err != nil {
			return fmt.Errorf("insert chapter %s: %w", ch.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// BookSnapshot returns a point-in-time view of the book and its chapters in
// native order.
func (r *BookRepository) BookSnapshot(ctx context.Context, id string) (*model.BookSnapshot, error) {
	var book model.BookSnapshot
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, COALESCE(subtitle,''), author, COALESCE(synopsis,''), COALESCE(genre,''), COALESCE(copyright_line,'')
		FROM books WHERE id=$1
	`, id)
	if err := row.Scan(&book.ID, &book.Title, &book.Subtitle, &book.Author, &book.Synopsis, &book.Genre, &book.CopyrightLine); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, content, word_count
		FROM chapters WHERE book_id=$1 ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("select chapters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ch model.Chapter
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.Content, &ch.WordCount); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		book.Chapters = append(book.Chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapters: %w", err)
	}
	return &book, nil
}

// AppendChapters adds chapters after the book's current last position. Used
// by the manuscript import worker.
func (r *BookRepository) AppendChapters(ctx context.Context, bookID string, chapters []model.Chapter) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	var last int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(position),0) FROM chapters WHERE book_id=$1`, bookID).Scan(&last); err != nil {
		return fmt.Errorf("max position: %w", err)
	}
	for i, ch := range chapters {
		_, err = tx.Exec(ctx, `
			INSERT INTO chapters (id, book_id, position, title, content, word_count)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, ch.ID, bookID, last+i+1, ch.Title, ch.Content, ch.WordCount)
		if err != nil {
			return fmt.Errorf("insert chapter %s: %w", ch.ID, err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE books SET updated_at=$1 WHERE id=$2`, time.Now().UTC(), bookID); err != nil {
		return fmt.Errorf("touch book: %w", err)
	}
	return tx.Commit(ctx)
}
