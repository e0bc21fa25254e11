package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLen   = 255
	maxAuthorLen = 255
	maxISBNLen   = 32
)

// Book is a catalog record.
type Book struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	ISBN   string `json:"isbn"`
	Author string `json:"author"`
}

// Normalize trims surrounding whitespace from every text field.
func (b *Book) Normalize() {
	b.Name = strings.TrimSpace(b.Name)
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Author = strings.TrimSpace(b.Author)
}

// Validate checks the catalog invariants: a non-empty title and author and
// bounded field lengths.
func (b *Book) Validate() error {
	switch {
	case b.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidationFailed)
	case b.Author == "":
		return fmt.Errorf("%w: author is required", ErrValidationFailed)
	case utf8.RuneCountInString(b.Name) > maxNameLen:
		return fmt.Errorf("%w: name must be at most %d characters", ErrValidationFailed, maxNameLen)
	case utf8.RuneCountInString(b.Author) > maxAuthorLen:
		return fmt.Errorf("%w: author must be at most %d characters", ErrValidationFailed, maxAuthorLen)
	case utf8.RuneCountInString(b.ISBN) > maxISBNLen:
		return fmt.Errorf("%w: isbn must be at most %d characters", ErrValidationFailed, maxISBNLen)
	}
	return nil
}

// BookPage is one page of the catalog listing.
type BookPage struct {
	Items      []*Book
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}
