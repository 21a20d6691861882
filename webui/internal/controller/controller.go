// Package controller owns the list page's query state and the add/edit/
// delete flows. Handlers translate HTTP into controller calls; the
// controller talks to the catalog API and hands back view models.
package controller

import (
	"context"
	"strconv"

	"github.com/bookops/bookshelf-service/webui/internal/errs"
	"github.com/bookops/bookshelf-service/webui/internal/model"
	"github.com/bookops/bookshelf-service/webui/internal/service/catalog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type CatalogAPI interface {
	ListBooks(ctx context.Context, state model.QueryState) (model.BookList, error)
	CreateBook(ctx context.Context, payload model.BookPayload) (model.Book, error)
	UpdateBook(ctx context.Context, id int, payload model.BookPayload) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	Meta(ctx context.Context) (model.Meta, error)
}

var _ CatalogAPI = (*catalog.Service)(nil)

type Controller struct {
	api CatalogAPI
	log *zap.Logger
}

func New(api CatalogAPI, log *zap.Logger) *Controller {
	return &Controller{api: api, log: log.Named("controller")}
}

// Normalize repairs a state assembled from untrusted URL parameters:
// out-of-whitelist values fall back to defaults, page is floored at 1.
// The upper page bound is only known after a fetch; the backend clamps
// it and the controller adopts the echoed page.
func Normalize(state model.QueryState) model.QueryState {
	if !model.ValidPageSize(state.PageSize) {
		state.PageSize = model.DefaultPageSize
	}
	if state.Page < 1 {
		state.Page = 1
	}
	if state.SortBy == "" {
		state.SortBy = model.DefaultSortBy
	}
	if state.SortDir != "asc" && state.SortDir != "desc" {
		state.SortDir = model.DefaultSortDir
	}
	if state.Category == "" {
		state.Category = model.AllCategories
	}
	return state
}

// RestorePageSize turns a persisted cookie value back into a page size,
// ignoring anything outside the whitelist.
func RestorePageSize(raw string) int {
	size, err := strconv.Atoi(raw)
	if err != nil || !model.ValidPageSize(size) {
		return model.DefaultPageSize
	}
	return size
}

// LoadList fetches the current page and the catalog metadata in parallel
// and assembles the list view. A metadata failure degrades to built-in
// defaults; a list failure yields a view flagged LoadFailed so the
// template renders the failure state instead of an empty result.
func (c *Controller) LoadList(ctx context.Context, state model.QueryState) model.ListView {
	state = Normalize(state)

	var (
		list    model.BookList
		listErr error
		meta    model.Meta
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		list, listErr = c.api.ListBooks(ctx, state)
		return nil
	})
	g.Go(func() error {
		m, err := c.api.Meta(ctx)
		if err != nil {
			c.log.Warn("meta fetch failed, using defaults", zap.Error(err))
			m = fallbackMeta()
		}
		meta = m
		return nil
	})
	g.Wait() //nolint:errcheck // closures never return errors

	view := model.ListView{
		State:      state,
		Categories: meta.Categories,
		PageSizes:  meta.PageSizes,
		TotalPages: 1,
	}
	if listErr != nil {
		view.LoadFailed = true
		view.LoadError = errs.Message(listErr, errs.MsgLoadFailed)
		return view
	}

	// the backend clamps overshooting pages; adopt its echoed paging so
	// links and the URL agree with what is on screen
	view.State.Page = list.Page
	view.State.PageSize = list.PageSize
	view.Items = list.Items
	view.Total = list.Total
	view.TotalPages = list.TotalPages
	return view
}

// Categories fetches the category whitelist for the form's selector,
// degrading to the built-in list when the metadata endpoint is down.
func (c *Controller) Categories(ctx context.Context) []string {
	meta, err := c.api.Meta(ctx)
	if err != nil || len(meta.Categories) == 0 {
		return model.Categories
	}
	return meta.Categories
}

// FindBook re-fetches the current page and locates id on it. A false
// return means the record is gone or no longer on this page, typically
// because another session mutated the catalog.
func (c *Controller) FindBook(ctx context.Context, state model.QueryState, id int) (model.Book, bool, error) {
	list, err := c.api.ListBooks(ctx, Normalize(state))
	if err != nil {
		return model.Book{}, false, err
	}
	for _, b := range list.Items {
		if b.ID == id {
			return b, true, nil
		}
	}
	return model.Book{}, false, nil
}

// SubmitForm validates input and creates or updates depending on whether
// the id field is set. Field errors come back keyed by field name for
// inline display; a backend failure comes back as a single banner
// message. Both empty means success.
func (c *Controller) SubmitForm(ctx context.Context, input model.FormInput) (map[string]string, string) {
	payload, fieldErrs := ValidateForm(input)
	if len(fieldErrs) > 0 {
		return fieldErrs, ""
	}

	var err error
	if input.ID == "" {
		_, err = c.api.CreateBook(ctx, payload)
	} else {
		id, convErr := strconv.Atoi(input.ID)
		if convErr != nil {
			return nil, errs.MsgRequestFailed
		}
		_, err = c.api.UpdateBook(ctx, id, payload)
	}
	if err != nil {
		return nil, errs.Message(err, errs.MsgRequestFailed)
	}
	return nil, ""
}

// DeleteBook removes id and returns the page the list should show next.
// Deleting the sole item of a page past the first steps the view back
// one page rather than landing on an empty page.
func (c *Controller) DeleteBook(ctx context.Context, state model.QueryState, id, itemsOnPage int) (int, error) {
	if err := c.api.DeleteBook(ctx, id); err != nil {
		return state.Page, err
	}
	if itemsOnPage == 1 && state.Page > 1 {
		return state.Page - 1, nil
	}
	return state.Page, nil
}

// fallbackMeta leaves Categories empty: with the metadata endpoint down
// the category filter degrades to "all" only, the rest stays usable.
func fallbackMeta() model.Meta {
	return model.Meta{PageSizes: model.AllowedPageSizes}
}
