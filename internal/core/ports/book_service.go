package ports

import (
	"context"

	"github.com/rpg-librarium/liberation/internal/core/domain"
)

// BookService defines the catalog use cases.
type BookService interface {
	Retrieve(ctx context.Context, id int64) (*domain.Book, error)
	Create(ctx context.Context, book domain.Book) (*domain.Book, error)
	List(ctx context.Context, page, limit int) (*domain.BookPage, error)
	Update(ctx context.Context, id int64, book domain.Book) (*domain.Book, error)
}
