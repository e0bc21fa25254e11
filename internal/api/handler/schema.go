package handler

import (
	"time"

	"github.com/rpg-librarium/liberation/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	User      userResponse `json:"user"`
}

type createUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=64"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Roles    []string `json:"roles"    validate:"required,min=1,dive,oneof=admin librarian member"`
}

type userResponse struct {
	ID        string     `json:"id,omitempty"`
	Username  string     `json:"username"`
	Roles     []string   `json:"roles"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func toUserResponse(u *domain.User) userResponse {
	resp := userResponse{ID: u.ID, Username: u.Username, Roles: domain.RoleNames(u.Roles)}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt.UTC()
		resp.CreatedAt = &created
	}
	return resp
}

func identityResponse(id *domain.Identity) userResponse {
	return userResponse{Username: id.Username, Roles: domain.RoleNames(id.Roles)}
}

// --- Catalog ---

// bookRequest is the body of POST /book and PUT /book/{id}. An id in the
// body is accepted and ignored.
type bookRequest struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"   validate:"required,max=255"`
	ISBN   string `json:"isbn"   validate:"max=32"`
	Author string `json:"author" validate:"required,max=255"`
}

func (r bookRequest) toDomain() domain.Book {
	return domain.Book{Name: r.Name, ISBN: r.ISBN, Author: r.Author}
}

type bookResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	ISBN   string `json:"isbn"`
	Author string `json:"author"`
}

func toBookResponse(b *domain.Book) bookResponse {
	return bookResponse{ID: b.ID, Name: b.Name, ISBN: b.ISBN, Author: b.Author}
}

type bookPageResponse struct {
	Items      []bookResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

func toBookPageResponse(p *domain.BookPage) bookPageResponse {
	items := make([]bookResponse, 0, len(p.Items))
	for _, b := range p.Items {
		items = append(items, toBookResponse(b))
	}
	return bookPageResponse{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}
}
