package handler

import (
	"net/http"
	"strconv"

	md "github.com/bookops/bookshelf-service/pkg/middleware"

	"github.com/bookops/bookshelf-service/catalog/internal/errs"
	"github.com/bookops/bookshelf-service/catalog/internal/model"
	"github.com/bookops/bookshelf-service/pkg/validate"
	_ "github.com/bookops/bookshelf-service/swagger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

type Handler struct {
	catalogSvc CatalogService
	log        *zap.Logger
}

func New(catalogSvc CatalogService, log *zap.Logger) *Handler {
	return &Handler{
		catalogSvc: catalogSvc,
		log:        log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))
	e.HTTPErrorHandler = ErrorHandler(h.log)

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/books", h.ListBooks)
	api.POST("/books", h.CreateBook)
	api.PUT("/books/:id", h.UpdateBook)
	api.DELETE("/books/:id", h.DeleteBook)

	api.GET("/meta", h.Meta)
	api.GET("/stats", h.Stats)
	api.GET("/audit", h.Audit)

	return e
}

// ErrorHandler emits every error as {"error": message}, the wire shape
// the web client expects.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := err.Error()

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			code = httpErr.Code
			if s, ok := httpErr.Message.(string); ok {
				msg = s
			}
		}
		if sendErr := c.JSON(code, map[string]string{"error": msg}); sendErr != nil {
			log.Error("ErrorHandler", zap.Error(sendErr))
		}
	}
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) ListBooks(c echo.Context) error {
	q := model.ListQuery{
		Page:     safeInt(c.QueryParam("page"), 1),
		PageSize: safeInt(c.QueryParam("pageSize"), model.DefaultPageSize),
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		SortBy:   c.QueryParam("sortBy"),
		SortDir:  c.QueryParam("sortDir"),
	}
	list, err := h.catalogSvc.ListBooks(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateBook(c echo.Context) error {
	var payload model.BookPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	book, err := h.catalogSvc.CreateBook(c.Request().Context(), payload)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, errs.ErrNotFound.Error())
	}
	var payload model.BookPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	book, err := h.catalogSvc.UpdateBook(c.Request().Context(), id, payload)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, errs.ErrNotFound.Error())
	}
	if err := h.catalogSvc.DeleteBook(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Meta(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalogSvc.Meta(c.Request().Context()))
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.catalogSvc.Stats(c.Request().Context(), safeInt(c.QueryParam("pageSize"), model.DefaultPageSize))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) Audit(c echo.Context) error {
	events, err := h.catalogSvc.ListAuditEvents(c.Request().Context(), safeInt(c.QueryParam("limit"), 20))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": events})
}

func serviceError(err error) error {
	var vErr *errs.ValidationError
	switch {
	case errors.As(err, &vErr):
		return echo.NewHTTPError(http.StatusBadRequest, vErr.Msg)
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// safeInt parses query parameters permissively: anything non-numeric
// falls back to the default instead of erroring.
func safeInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
