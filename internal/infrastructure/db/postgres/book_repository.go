package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

// Create inserts the book and sets book.ID to the generated id.
func (r *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO books (name, isbn, author) VALUES ($1, $2, $3) RETURNING id`,
		book.Name, book.ISBN, book.Author,
	).Scan(&book.ID)
	if err != nil {
		return storeError("insert book", err)
	}
	return nil
}

func (r *BookRepository) FindByID(ctx context.Context, id int64) (*domain.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var b domain.Book
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, isbn, author FROM books WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.ISBN, &b.Author)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, storeError("find book", err)
	}
	return &b, nil
}

// List returns books ordered by id together with the total row count.
func (r *BookRepository) List(ctx context.Context, offset, limit int) ([]*domain.Book, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return nil, 0, storeError("count books", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, isbn, author FROM books ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, storeError("list books", err)
	}
	defer rows.Close()

	books := make([]*domain.Book, 0, limit)
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.ID, &b.Name, &b.ISBN, &b.Author); err != nil {
			return nil, 0, storeError("scan book", err)
		}
		books = append(books, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeError("iterate books", err)
	}
	return books, total, nil
}

func (r *BookRepository) Update(ctx context.Context, book *domain.Book) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE books SET name = $1, isbn = $2, author = $3 WHERE id = $4`,
		book.Name, book.ISBN, book.Author, book.ID,
	)
	if err != nil {
		return storeError("update book", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError("update book", err)
	}
	if n == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

var _ ports.BookRepository = (*BookRepository)(nil)
