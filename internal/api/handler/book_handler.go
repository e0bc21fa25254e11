package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rpg-librarium/liberation/internal/api/metrics"
	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

// BookHandler handles HTTP requests for catalog operations.
type BookHandler struct {
	service ports.BookService
	audit   ports.AuditRecorder
}

func NewBookHandler(service ports.BookService, audit ports.AuditRecorder) *BookHandler {
	if audit == nil {
		audit = ports.NopAuditRecorder{}
	}
	return &BookHandler{service: service, audit: audit}
}

// Get handles GET /book/:id.
//
// @Summary      Get a book by id
// @Tags         catalog
// @Produce      json
// @Security     BasicAuth
// @Security     BearerAuth
// @Param        id   path      int  true  "Book id"
// @Success      200  {object}  bookResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /book/{id} [get]
func (h *BookHandler) Get(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}

	book, err := h.service.Retrieve(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResponse(book))
}

// List handles GET /book.
//
// @Summary      List books
// @Tags         catalog
// @Produce      json
// @Security     BasicAuth
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Page size (default 20, max 100)"
// @Success      200    {object}  bookPageResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Router       /book [get]
func (h *BookHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	result, err := h.service.List(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookPageResponse(result))
}

// Create handles POST /book/.
//
// @Summary      Create a book
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string       false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      bookRequest  true   "Book details"
// @Success      201              {object}  bookResponse
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /book/ [post]
func (h *BookHandler) Create(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	book, err := h.service.Create(c.Request().Context(), req.toDomain())
	if err != nil {
		return err
	}

	metrics.BooksCreatedTotal.Inc()
	h.record(c, domain.AuditBookCreate, book.ID)
	c.Response().Header().Set(echo.HeaderLocation, "/book/"+strconv.FormatInt(book.ID, 10))
	return c.JSON(http.StatusCreated, toBookResponse(book))
}

// Update handles PUT /book/:id.
//
// @Summary      Update a book
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Security     BearerAuth
// @Param        id    path      int          true  "Book id"
// @Param        body  body      bookRequest  true  "Book details"
// @Success      200   {object}  bookResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /book/{id} [put]
func (h *BookHandler) Update(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	book, err := h.service.Update(c.Request().Context(), id, req.toDomain())
	if err != nil {
		return err
	}

	h.record(c, domain.AuditBookUpdate, book.ID)
	return c.JSON(http.StatusOK, toBookResponse(book))
}

func (h *BookHandler) record(c echo.Context, action domain.AuditAction, id int64) {
	h.audit.Record(domain.AuditEvent{
		Username:   currentUsername(c),
		Action:     action,
		Outcome:    domain.OutcomeSuccess,
		Resource:   "book:" + strconv.FormatInt(id, 10),
		RemoteIP:   c.RealIP(),
		OccurredAt: time.Now().UTC(),
	})
}

func bookID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid book id")
	}
	return id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}
