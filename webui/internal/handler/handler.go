package handler

import (
	"net/http"
	"strconv"

	md "github.com/bookops/bookshelf-service/pkg/middleware"

	"github.com/bookops/bookshelf-service/webui/internal/controller"
	"github.com/bookops/bookshelf-service/webui/internal/errs"
	"github.com/bookops/bookshelf-service/webui/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	pageSizeCookie       = "pageSize"
	pageSizeCookieMaxAge = 365 * 24 * 60 * 60
)

type Handler struct {
	ctrl *controller.Controller
	log  *zap.Logger
}

func New(ctrl *controller.Controller, log *zap.Logger) *Handler {
	return &Handler{ctrl: ctrl, log: log}
}

func (h *Handler) NewRouter(renderer echo.Renderer) *echo.Echo {
	e := echo.New()
	const pageRPS = 50
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Renderer = renderer

	e.GET("/manage/health", h.Health)

	pages := e.Group("",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(pageRPS),
	)
	pages.GET("/", h.List)
	pages.GET("/books/new", h.NewForm)
	pages.GET("/books/:id/edit", h.EditForm)
	pages.POST("/books", h.Submit)
	pages.POST("/books/:id/delete", h.Delete)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) List(c echo.Context) error {
	state := h.stateFromRequest(c)
	if c.QueryParam("pageSize") != "" {
		// an explicitly chosen size becomes the durable preference
		writePageSizeCookie(c, state.PageSize)
	} else if cookie, err := c.Cookie(pageSizeCookie); err == nil && cookie.Value != strconv.Itoa(state.PageSize) {
		// out-of-whitelist cookie value, overwrite with the effective size
		writePageSizeCookie(c, state.PageSize)
	}
	view := h.ctrl.LoadList(c.Request().Context(), state)
	view.Flash = c.QueryParam("flash")
	return c.Render(http.StatusOK, "list.html", view)
}

func (h *Handler) NewForm(c echo.Context) error {
	state := h.stateFromRequest(c)
	return c.Render(http.StatusOK, "form.html", model.FormView{
		Mode:       model.FormAdd,
		State:      state,
		Categories: h.ctrl.Categories(c.Request().Context()),
		Input:      model.FormInput{Category: "Other"},
	})
}

func (h *Handler) EditForm(c echo.Context) error {
	state := h.stateFromRequest(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return h.redirectToList(c, state, "")
	}
	book, found, err := h.ctrl.FindBook(c.Request().Context(), state, id)
	if err != nil {
		return h.redirectToList(c, state, errs.Message(err, errs.MsgLoadFailed))
	}
	if !found {
		return h.redirectToList(c, state, "Book not found.")
	}
	return c.Render(http.StatusOK, "form.html", model.FormView{
		Mode:       model.FormEdit,
		State:      state,
		Categories: h.ctrl.Categories(c.Request().Context()),
		Input:      formInput(book),
	})
}

func (h *Handler) Submit(c echo.Context) error {
	state := h.stateFromRequest(c)
	var input model.FormInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fieldErrs, serverErr := h.ctrl.SubmitForm(c.Request().Context(), input)
	if len(fieldErrs) > 0 || serverErr != "" {
		mode := model.FormAdd
		if input.ID != "" {
			mode = model.FormEdit
		}
		return c.Render(http.StatusOK, "form.html", model.FormView{
			Mode:        mode,
			State:       state,
			Categories:  h.ctrl.Categories(c.Request().Context()),
			Input:       input,
			Errors:      fieldErrs,
			ServerError: serverErr,
		})
	}
	return h.redirectToList(c, state, "")
}

func (h *Handler) Delete(c echo.Context) error {
	state := h.stateFromRequest(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return h.redirectToList(c, state, "Book not found.")
	}
	itemsOnPage, _ := strconv.Atoi(c.FormValue("count"))

	page, err := h.ctrl.DeleteBook(c.Request().Context(), state, id, itemsOnPage)
	if err != nil {
		return h.redirectToList(c, state, errs.Message(err, errs.MsgRequestFailed))
	}
	return h.redirectToList(c, state.WithPage(page), "")
}

// stateFromRequest assembles the query state from the URL, falling back
// to the pageSize cookie when the URL does not carry one.
func (h *Handler) stateFromRequest(c echo.Context) model.QueryState {
	state := model.NewQueryState()
	state.Query = c.QueryParam("q")
	if v := c.QueryParam("category"); v != "" {
		state.Category = v
	}
	if v := c.QueryParam("sortBy"); v != "" {
		state.SortBy = v
	}
	if v := c.QueryParam("sortDir"); v != "" {
		state.SortDir = v
	}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		state.Page = v
	}
	if v := c.QueryParam("pageSize"); v != "" {
		state.PageSize = controller.RestorePageSize(v)
	} else if cookie, err := c.Cookie(pageSizeCookie); err == nil {
		state.PageSize = controller.RestorePageSize(cookie.Value)
	}
	return controller.Normalize(state)
}

func (h *Handler) redirectToList(c echo.Context, state model.QueryState, flash string) error {
	v := state.Values()
	if flash != "" {
		v.Set("flash", flash)
	}
	return c.Redirect(http.StatusSeeOther, "/?"+v.Encode())
}

func writePageSizeCookie(c echo.Context, size int) {
	c.SetCookie(&http.Cookie{
		Name:   pageSizeCookie,
		Value:  strconv.Itoa(size),
		Path:   "/",
		MaxAge: pageSizeCookieMaxAge,
	})
}

func formInput(b model.Book) model.FormInput {
	return model.FormInput{
		ID:       strconv.Itoa(b.ID),
		Title:    b.Title,
		Author:   b.Author,
		Year:     strconv.Itoa(b.Year),
		Category: b.Category,
		Rating:   strconv.FormatFloat(b.Rating, 'f', -1, 64),
		Price:    strconv.FormatFloat(b.Price, 'f', -1, 64),
		ImageURL: b.ImageURL,
	}
}
