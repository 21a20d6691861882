package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bookops/bookshelf-service/webui/internal/controller"
	"github.com/bookops/bookshelf-service/webui/internal/handler"
	"github.com/bookops/bookshelf-service/webui/internal/model"
	"github.com/bookops/bookshelf-service/webui/internal/render"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAPI struct {
	list      model.BookList
	listErr   error
	lastState model.QueryState
	deletedID int
	deleteErr error
	created   *model.BookPayload
}

func (s *stubAPI) ListBooks(ctx context.Context, state model.QueryState) (model.BookList, error) {
	s.lastState = state
	return s.list, s.listErr
}

func (s *stubAPI) CreateBook(ctx context.Context, payload model.BookPayload) (model.Book, error) {
	s.created = &payload
	return model.Book{ID: 31}, nil
}

func (s *stubAPI) UpdateBook(ctx context.Context, id int, payload model.BookPayload) (model.Book, error) {
	return model.Book{ID: id}, nil
}

func (s *stubAPI) DeleteBook(ctx context.Context, id int) error {
	s.deletedID = id
	return s.deleteErr
}

func (s *stubAPI) Meta(ctx context.Context) (model.Meta, error) {
	return model.Meta{Categories: model.Categories, PageSizes: model.AllowedPageSizes}, nil
}

func newTestRouter(t *testing.T, api *stubAPI) *echo.Echo {
	t.Helper()
	renderer, err := render.New()
	require.NoError(t, err)
	h := handler.New(controller.New(api, zap.NewNop()), zap.NewNop())
	return h.NewRouter(renderer)
}

func pageOfBooks(n, page, totalPages int) model.BookList {
	items := make([]model.Book, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, model.Book{ID: i, Title: fmt.Sprintf("Book %d", i), Author: "A", Year: 2000})
	}
	return model.BookList{Items: items, Total: n, Page: page, PageSize: 10, TotalPages: totalPages}
}

func TestHandler_List(t *testing.T) {
	t.Parallel()
	api := &stubAPI{list: pageOfBooks(2, 1, 1)}
	e := newTestRouter(t, api)

	r := httptest.NewRequest(http.MethodGet, "/?q=dune&category=Sci-Fi", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Book 1")
	require.Equal(t, "dune", api.lastState.Query)
	require.Equal(t, "Sci-Fi", api.lastState.Category)
	// applying filters without an explicit page starts from page 1
	require.Equal(t, 1, api.lastState.Page)
}

func TestHandler_List_PageSizeCookie(t *testing.T) {
	t.Parallel()

	t.Run("explicit pageSize is persisted", func(t *testing.T) {
		t.Parallel()
		api := &stubAPI{list: pageOfBooks(0, 1, 1)}
		e := newTestRouter(t, api)

		r := httptest.NewRequest(http.MethodGet, "/?pageSize=20", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, "pageSize", cookies[0].Name)
		require.Equal(t, "20", cookies[0].Value)
		require.Equal(t, "/", cookies[0].Path)
		require.Equal(t, 365*24*60*60, cookies[0].MaxAge)
	})

	t.Run("cookie restores the preference", func(t *testing.T) {
		t.Parallel()
		api := &stubAPI{list: pageOfBooks(0, 1, 1)}
		e := newTestRouter(t, api)

		r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		r.AddCookie(&http.Cookie{Name: "pageSize", Value: "50"})
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 50, api.lastState.PageSize)
	})

	t.Run("tampered cookie falls back to default", func(t *testing.T) {
		t.Parallel()
		api := &stubAPI{list: pageOfBooks(0, 1, 1)}
		e := newTestRouter(t, api)

		r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		r.AddCookie(&http.Cookie{Name: "pageSize", Value: "9999"})
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, model.DefaultPageSize, api.lastState.PageSize)

		// the bad value gets overwritten with the effective default
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, "10", cookies[0].Value)
	})
}

func TestHandler_List_BackendDown(t *testing.T) {
	t.Parallel()
	api := &stubAPI{listErr: fmt.Errorf("connection refused")}
	e := newTestRouter(t, api)

	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Could not load books.")
}

func TestHandler_Submit(t *testing.T) {
	t.Parallel()

	t.Run("valid create redirects to the list", func(t *testing.T) {
		t.Parallel()
		api := &stubAPI{}
		e := newTestRouter(t, api)

		form := url.Values{
			"title": {"Dune"}, "author": {"Frank Herbert"}, "year": {"1965"},
			"category": {"Sci-Fi"}, "rating": {"4.5"}, "price": {"9.99"},
		}
		r := httptest.NewRequest(http.MethodPost, "/books?page=2&pageSize=10&sortBy=title&sortDir=asc", strings.NewReader(form.Encode()))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/?page=2&pageSize=10&sortBy=title&sortDir=asc", w.Header().Get(echo.HeaderLocation))
		require.NotNil(t, api.created)
		require.Equal(t, "Dune", api.created.Title)
	})

	t.Run("invalid input re-renders the form with messages", func(t *testing.T) {
		t.Parallel()
		api := &stubAPI{}
		e := newTestRouter(t, api)

		form := url.Values{"title": {""}, "author": {"A"}, "year": {"3000"}, "rating": {"1"}, "price": {"1"}}
		r := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(form.Encode()))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		require.Contains(t, body, "Title is required.")
		require.Contains(t, body, "Year must be between 0 and 2100.")
		require.Contains(t, body, `value="3000"`)
		require.Nil(t, api.created)
	})
}

func TestHandler_Delete(t *testing.T) {
	t.Parallel()

	t.Run("sole item on page 3 redirects to page 2", func(t *testing.T) {
		t.Parallel()
		api := &stubAPI{}
		e := newTestRouter(t, api)

		form := url.Values{"count": {"1"}}
		r := httptest.NewRequest(http.MethodPost, "/books/7/delete?page=3&pageSize=10&sortBy=created_at&sortDir=desc", strings.NewReader(form.Encode()))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, 7, api.deletedID)
		require.Contains(t, w.Header().Get(echo.HeaderLocation), "page=2")
	})

	t.Run("failure redirects with the backend message", func(t *testing.T) {
		t.Parallel()
		api := &stubAPI{deleteErr: fmt.Errorf("boom")}
		e := newTestRouter(t, api)

		r := httptest.NewRequest(http.MethodPost, "/books/7/delete?page=3", strings.NewReader("count=1"))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusSeeOther, w.Code)
		loc := w.Header().Get(echo.HeaderLocation)
		require.Contains(t, loc, "flash=Request+failed.")
		require.Contains(t, loc, "page=3")
	})
}

func TestHandler_EditForm(t *testing.T) {
	t.Parallel()

	t.Run("renders the record", func(t *testing.T) {
		t.Parallel()
		api := &stubAPI{list: model.BookList{
			Items: []model.Book{{ID: 9, Title: "Solaris", Author: "Stanislaw Lem", Year: 1961, Category: "Sci-Fi", Rating: 4.2, Price: 11.5}},
			Page:  1, PageSize: 10, TotalPages: 1, Total: 1,
		}}
		e := newTestRouter(t, api)

		r := httptest.NewRequest(http.MethodGet, "/books/9/edit", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		require.Contains(t, body, "Edit book")
		require.Contains(t, body, `value="Solaris"`)
		require.Contains(t, body, `name="id" value="9"`)
	})

	t.Run("vanished record redirects with a message", func(t *testing.T) {
		t.Parallel()
		api := &stubAPI{list: pageOfBooks(0, 1, 1)}
		e := newTestRouter(t, api)

		r := httptest.NewRequest(http.MethodGet, "/books/77/edit", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Contains(t, w.Header().Get(echo.HeaderLocation), "flash=Book+not+found.")
	})
}
