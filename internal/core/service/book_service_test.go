package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/rpg-librarium/liberation/internal/core/domain"
)

type stubBookRepository struct {
	books  map[int64]domain.Book
	nextID int64
	err    error
}

func newStubBookRepository(firstID int64) *stubBookRepository {
	return &stubBookRepository{books: make(map[int64]domain.Book), nextID: firstID}
}

func (r *stubBookRepository) Create(_ context.Context, book *domain.Book) error {
	if r.err != nil {
		return r.err
	}
	book.ID = r.nextID
	r.nextID++
	r.books[book.ID] = *book
	return nil
}

func (r *stubBookRepository) FindByID(_ context.Context, id int64) (*domain.Book, error) {
	if r.err != nil {
		return nil, r.err
	}
	b, ok := r.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	return &b, nil
}

func (r *stubBookRepository) List(_ context.Context, offset, limit int) ([]*domain.Book, int64, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	var out []*domain.Book
	for id := int64(1); id < r.nextID; id++ {
		b, ok := r.books[id]
		if !ok {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, &b)
	}
	return out, int64(len(r.books)), nil
}

func (r *stubBookRepository) Update(_ context.Context, book *domain.Book) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.books[book.ID]; !ok {
		return domain.ErrBookNotFound
	}
	r.books[book.ID] = *book
	return nil
}

func TestBookService_CreateThenRetrieve(t *testing.T) {
	repo := newStubBookRepository(42)
	svc := NewBookService(repo, zerolog.Nop())

	created, err := svc.Create(context.Background(), domain.Book{Name: "Wege der Helden", ISBN: "1234", Author: "Peter Lustig"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 42 {
		t.Fatalf("expected assigned id 42, got %d", created.ID)
	}
	if created.Name != "Wege der Helden" || created.ISBN != "1234" || created.Author != "Peter Lustig" {
		t.Fatalf("unexpected fields: %+v", created)
	}

	got, err := svc.Retrieve(context.Background(), 42)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if *got != *created {
		t.Fatalf("retrieved %+v, want %+v", got, created)
	}
}

func TestBookService_CreateIgnoresClientID(t *testing.T) {
	repo := newStubBookRepository(1)
	svc := NewBookService(repo, zerolog.Nop())

	created, err := svc.Create(context.Background(), domain.Book{ID: 999, Name: "Aventurien", Author: "Ulisses"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected repository id 1, got %d", created.ID)
	}
	if _, ok := repo.books[999]; ok {
		t.Fatal("client supplied id must not be persisted")
	}
}

func TestBookService_CreateValidation(t *testing.T) {
	svc := NewBookService(newStubBookRepository(1), zerolog.Nop())

	cases := map[string]domain.Book{
		"missing name":   {Author: "A"},
		"missing author": {Name: "N"},
		"blank name":     {Name: "   ", Author: "A"},
	}
	for name, b := range cases {
		if _, err := svc.Create(context.Background(), b); !errors.Is(err, domain.ErrValidationFailed) {
			t.Errorf("%s: expected ErrValidationFailed, got %v", name, err)
		}
	}
}

func TestBookService_RetrieveMissing(t *testing.T) {
	svc := NewBookService(newStubBookRepository(1), zerolog.Nop())

	if _, err := svc.Retrieve(context.Background(), 7); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Retrieve(context.Background(), 0); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for id 0, got %v", err)
	}
}

func TestBookService_StoreFaultPropagates(t *testing.T) {
	repo := newStubBookRepository(1)
	repo.err = domain.Unavailable("find book", errors.New("timeout"))
	svc := NewBookService(repo, zerolog.Nop())

	if _, err := svc.Retrieve(context.Background(), 1); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestBookService_List(t *testing.T) {
	repo := newStubBookRepository(1)
	svc := NewBookService(repo, zerolog.Nop())
	for i := 0; i < 5; i++ {
		if _, err := svc.Create(context.Background(), domain.Book{Name: "Band", Author: "Redaktion"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	page, err := svc.List(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || page.TotalPages != 3 || page.Page != 2 || page.Limit != 2 {
		t.Fatalf("unexpected page metadata: %+v", page)
	}
	if len(page.Items) != 2 || page.Items[0].ID != 3 || page.Items[1].ID != 4 {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
}

func TestBookService_ListDefaults(t *testing.T) {
	svc := NewBookService(newStubBookRepository(1), zerolog.Nop())

	page, err := svc.List(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Page != 1 || page.Limit != 100 {
		t.Fatalf("expected page 1 limit 100, got %d/%d", page.Page, page.Limit)
	}
	if page.Items == nil || len(page.Items) != 0 || page.TotalPages != 0 {
		t.Fatalf("expected empty non-nil page, got %+v", page)
	}

	page, err = svc.List(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Limit != 20 {
		t.Fatalf("expected default limit 20, got %d", page.Limit)
	}
}

func TestBookService_Update(t *testing.T) {
	repo := newStubBookRepository(1)
	svc := NewBookService(repo, zerolog.Nop())
	created, err := svc.Create(context.Background(), domain.Book{Name: "Old", Author: "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID, domain.Book{ID: 77, Name: " New ", Author: "B"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Name != "New" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if repo.books[created.ID].Author != "B" {
		t.Fatalf("update not persisted: %+v", repo.books[created.ID])
	}

	if _, err := svc.Update(context.Background(), 404, domain.Book{Name: "X", Author: "Y"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookService_RecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	svc := NewBookService(newStubBookRepository(1), zerolog.Nop())
	_, _ = svc.Retrieve(context.Background(), 9)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "catalog.retrieve" {
		t.Fatalf("unexpected span name %q", spans[0].Name)
	}
	if len(spans[0].Events) == 0 {
		t.Fatal("expected error event on failed retrieve")
	}
}
