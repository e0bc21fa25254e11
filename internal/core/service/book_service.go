package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type BookService struct {
	repo   ports.BookRepository
	logger zerolog.Logger
}

func NewBookService(repo ports.BookRepository, logger zerolog.Logger) *BookService {
	return &BookService{repo: repo, logger: logger}
}

// Retrieve returns the book stored under id.
func (s *BookService) Retrieve(ctx context.Context, id int64) (_ *domain.Book, err error) {
	ctx, span := startSpan(ctx, "catalog.retrieve", attribute.Int64("book.id", id))
	defer func() { endSpan(span, err) }()

	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", domain.ErrValidationFailed)
	}
	return s.repo.FindByID(ctx, id)
}

// Create validates and persists a new book. Any caller-supplied ID is
// discarded; the stored record carries the repository-assigned ID.
func (s *BookService) Create(ctx context.Context, book domain.Book) (_ *domain.Book, err error) {
	ctx, span := startSpan(ctx, "catalog.create")
	defer func() { endSpan(span, err) }()

	book.ID = 0
	book.Normalize()
	if err := book.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &book); err != nil {
		s.logger.Error().Err(err).Msg("failed to create book")
		return nil, err
	}
	span.SetAttributes(attribute.Int64("book.id", book.ID))

	s.logger.Info().Int64("book_id", book.ID).Str("isbn", book.ISBN).Msg("book created")
	return &book, nil
}

// List returns one page of the catalog ordered by id. Page defaults to 1,
// limit defaults to 20 and is capped at 100.
func (s *BookService) List(ctx context.Context, page, limit int) (_ *domain.BookPage, err error) {
	ctx, span := startSpan(ctx, "catalog.list")
	defer func() { endSpan(span, err) }()

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	items, total, err := s.repo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Book{}
	}

	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}

	return &domain.BookPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Update replaces the book stored under id.
func (s *BookService) Update(ctx context.Context, id int64, book domain.Book) (_ *domain.Book, err error) {
	ctx, span := startSpan(ctx, "catalog.update", attribute.Int64("book.id", id))
	defer func() { endSpan(span, err) }()

	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", domain.ErrValidationFailed)
	}
	book.ID = id
	book.Normalize()
	if err := book.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &book); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("book_id", id).Msg("book updated")
	return &book, nil
}

var _ ports.BookService = (*BookService)(nil)
