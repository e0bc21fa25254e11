package ports

import (
	"context"

	"github.com/rpg-librarium/liberation/internal/core/domain"
)

// BookRepository defines persistence operations for catalog records.
type BookRepository interface {
	// Create stores b and assigns its server-generated ID.
	Create(ctx context.Context, b *domain.Book) error
	// FindByID returns domain.ErrBookNotFound when no record has id.
	FindByID(ctx context.Context, id int64) (*domain.Book, error)
	// List returns up to limit books ordered by id, skipping offset, and the total count.
	List(ctx context.Context, offset, limit int) ([]*domain.Book, int64, error)
	// Update overwrites the record with b.ID; domain.ErrBookNotFound when absent.
	Update(ctx context.Context, b *domain.Book) error
}
