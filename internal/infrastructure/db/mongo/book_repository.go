package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

const (
	booksCollection    = "books"
	countersCollection = "counters"
	bookSequence       = "books"
)

type BookRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewBookRepository(db *mongo.Database) *BookRepository {
	return &BookRepository{
		col:      db.Collection(booksCollection),
		counters: db.Collection(countersCollection),
	}
}

type bookDocument struct {
	ID     int64  `bson:"_id"`
	Name   string `bson:"name"`
	ISBN   string `bson:"isbn"`
	Author string `bson:"author"`
}

// nextID atomically increments the books sequence and returns the new value.
func (r *BookRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": bookSequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

// Create inserts a new book document with the next sequence id.
func (r *BookRepository) Create(ctx context.Context, b *domain.Book) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return storeError("next book id", err)
	}

	doc := bookDocument{ID: id, Name: b.Name, ISBN: b.ISBN, Author: b.Author}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return storeError("insert book", err)
	}
	b.ID = id
	return nil
}

func (r *BookRepository) FindByID(ctx context.Context, id int64) (*domain.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc bookDocument
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBookNotFound
		}
		return nil, storeError("find book", err)
	}
	return doc.toDomain(), nil
}

// List returns books sorted by id together with the total document count.
func (r *BookRepository) List(ctx context.Context, offset, limit int) ([]*domain.Book, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, storeError("count books", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, storeError("list books", err)
	}
	defer cur.Close(ctx)

	books := make([]*domain.Book, 0, limit)
	for cur.Next(ctx) {
		var doc bookDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, storeError("decode book", err)
		}
		books = append(books, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, 0, storeError("iterate books", err)
	}
	return books, total, nil
}

func (r *BookRepository) Update(ctx context.Context, b *domain.Book) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": b.ID},
		bson.M{"$set": bson.M{"name": b.Name, "isbn": b.ISBN, "author": b.Author}},
	)
	if err != nil {
		return storeError("update book", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (d bookDocument) toDomain() *domain.Book {
	return &domain.Book{ID: d.ID, Name: d.Name, ISBN: d.ISBN, Author: d.Author}
}

var _ ports.BookRepository = (*BookRepository)(nil)
