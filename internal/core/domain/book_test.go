package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestBook_Validate(t *testing.T) {
	valid := Book{Name: "Wege der Helden", ISBN: "1234", Author: "Peter Lustig"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid book, got %v", err)
	}

	cases := []struct {
		name string
		book Book
		want string
	}{
		{"missing name", Book{Author: "Peter Lustig"}, "name is required"},
		{"missing author", Book{Name: "Wege der Helden"}, "author is required"},
		{"long name", Book{Name: strings.Repeat("x", 256), Author: "a"}, "name must be at most"},
		{"long author", Book{Name: "n", Author: strings.Repeat("x", 256)}, "author must be at most"},
		{"long isbn", Book{Name: "n", Author: "a", ISBN: strings.Repeat("9", 33)}, "isbn must be at most"},
	}
	for _, tc := range cases {
		err := tc.book.Validate()
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("%s: expected ErrValidationFailed, got %v", tc.name, err)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected message containing %q, got %q", tc.name, tc.want, err.Error())
		}
	}
}

func TestBook_NormalizeThenValidate(t *testing.T) {
	b := Book{Name: "   ", Author: " Peter Lustig "}
	b.Normalize()
	if b.Author != "Peter Lustig" {
		t.Fatalf("author not trimmed: %q", b.Author)
	}
	if err := b.Validate(); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("whitespace-only name must fail validation, got %v", err)
	}
}
