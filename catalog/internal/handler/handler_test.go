package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bookops/bookshelf-service/catalog/internal/errs"
	"github.com/bookops/bookshelf-service/catalog/internal/handler"
	"github.com/bookops/bookshelf-service/catalog/internal/model"
	"github.com/bookops/bookshelf-service/pkg/validate"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	service_mocks "github.com/bookops/bookshelf-service/catalog/internal/handler/mocks"
)

func newTestRouter(t *testing.T) (*echo.Echo, *service_mocks.MockCatalogService) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	svc := service_mocks.NewMockCatalogService(c)
	log := zap.NewExample().Named("test")
	h := handler.New(svc, log)

	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.GET("/api/books", h.ListBooks)
	e.POST("/api/books", h.CreateBook)
	e.PUT("/api/books/:id", h.UpdateBook)
	e.DELETE("/api/books/:id", h.DeleteBook)
	e.GET("/api/meta", h.Meta)
	return e, svc
}

func TestHandler_ListBooks(t *testing.T) {
	t.Parallel()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	var tests = []struct {
		name         string
		target       string
		mockBehavior func(r *service_mocks.MockCatalogService)
		expectedCode int
		expectedBody string
	}{
		{
			name:   "ok",
			target: "/api/books?page=1&pageSize=10&q=dune&sortBy=title&sortDir=asc",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					ListBooks(gomock.Any(), model.ListQuery{Page: 1, PageSize: 10, Query: "dune", SortBy: "title", SortDir: "asc"}).
					Return(model.ListBooks{
						Items: []model.Book{
							{
								ID:        1,
								Title:     "Dune",
								Author:    "Frank Herbert",
								Year:      1965,
								Category:  "Sci-Fi",
								Rating:    4.5,
								Price:     9.99,
								ImageURL:  "https://placehold.co/160x220?text=Book+5",
								CreatedAt: created,
							},
						},
						Paging: model.Paging{Total: 1, Page: 1, PageSize: 10, TotalPages: 1},
					}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"items":[{"id":1,"title":"Dune","author":"Frank Herbert","year":1965,"category":"Sci-Fi","rating":4.5,"price":9.99,"imageUrl":"https://placehold.co/160x220?text=Book+5","createdAt":"2024-03-01T10:00:00Z"}],"total":1,"page":1,"pageSize":10,"totalPages":1}`,
		},
		{
			name:   "malformed page falls back to defaults",
			target: "/api/books?page=abc&pageSize=xyz",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					ListBooks(gomock.Any(), model.ListQuery{Page: 1, PageSize: 10}).
					Return(model.ListBooks{
						Items:  []model.Book{},
						Paging: model.Paging{Total: 0, Page: 1, PageSize: 10, TotalPages: 1},
					}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"items":[],"total":0,"page":1,"pageSize":10,"totalPages":1}`,
		},
		{
			name:   "err. internal",
			target: "/api/books",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					ListBooks(gomock.Any(), gomock.Any()).
					Return(model.ListBooks{}, fmt.Errorf("db internal"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"error":"db internal"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, svc := newTestRouter(t)
			tt.mockBehavior(svc)

			r := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_CreateBook(t *testing.T) {
	t.Parallel()
	var tests = []struct {
		name         string
		body         string
		mockBehavior func(r *service_mocks.MockCatalogService)
		expectedCode int
		expectedBody string
	}{
		{
			name: "created",
			body: `{"title":"Dune","author":"Frank Herbert","year":1965,"rating":4.5,"price":9.99}`,
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					CreateBook(gomock.Any(), gomock.Any()).
					Return(model.Book{ID: 31, Title: "Dune", Author: "Frank Herbert", Year: 1965, Category: "Other", Rating: 4.5, Price: 9.99, ImageURL: model.PlaceholderImage}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: `{"id":31,"title":"Dune","author":"Frank Herbert","year":1965,"category":"Other","rating":4.5,"price":9.99,"imageUrl":"https://placehold.co/160x220?text=Book","createdAt":"0001-01-01T00:00:00Z"}`,
		},
		{
			name: "validation error",
			body: `{"title":"","author":"A","year":2000,"rating":3,"price":5}`,
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					CreateBook(gomock.Any(), gomock.Any()).
					Return(model.Book{}, errs.Validation("Title is required."))
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"Title is required."}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, svc := newTestRouter(t)
			tt.mockBehavior(svc)

			r := httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_DeleteBook(t *testing.T) {
	t.Parallel()
	var tests = []struct {
		name         string
		target       string
		mockBehavior func(r *service_mocks.MockCatalogService)
		expectedCode int
		expectedBody string
	}{
		{
			name:   "ok",
			target: "/api/books/7",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().DeleteBook(gomock.Any(), 7).Return(nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"ok":true}`,
		},
		{
			name:   "not found",
			target: "/api/books/404",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().DeleteBook(gomock.Any(), 404).Return(errs.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"error":"Book not found."}`,
		},
		{
			name:         "non-numeric id",
			target:       "/api/books/abc",
			mockBehavior: func(r *service_mocks.MockCatalogService) {},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"error":"Book not found."}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, svc := newTestRouter(t)
			tt.mockBehavior(svc)

			r := httptest.NewRequest(http.MethodDelete, tt.target, http.NoBody)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Meta(t *testing.T) {
	t.Parallel()
	e, svc := newTestRouter(t)
	svc.EXPECT().Meta(gomock.Any()).Return(model.Meta{
		PageSizes:        model.AllowedPageSizes,
		Categories:       model.CategoryOptions,
		SortFields:       model.AllowedSortFields,
		PlaceholderImage: model.PlaceholderImage,
	})

	r := httptest.NewRequest(http.MethodGet, "/api/meta", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"pageSizes":[5,10,20,50]`)
	require.Contains(t, w.Body.String(), `"placeholderImage":"https://placehold.co/160x220?text=Book"`)
}
