// Package catalog is the web UI's client for the catalog REST API. All
// calls go through the retrying HTTP layer, so a cold-starting backend is
// absorbed rather than surfaced.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bookops/bookshelf-service/pkg/httpretry"
	"github.com/bookops/bookshelf-service/webui/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Service struct {
	client  *httpretry.Client
	baseURL string
	log     *zap.Logger
}

func New(client *httpretry.Client, baseURL string, log *zap.Logger) *Service {
	return &Service{
		client:  client,
		baseURL: baseURL,
		log:     log.Named("catalog-client"),
	}
}

func (s *Service) ListBooks(ctx context.Context, state model.QueryState) (model.BookList, error) {
	var list model.BookList
	u := fmt.Sprintf("%s/api/books?%s", s.baseURL, state.Values().Encode())
	if err := s.getJSON(ctx, u, &list); err != nil {
		return model.BookList{}, err
	}
	return list, nil
}

func (s *Service) CreateBook(ctx context.Context, payload model.BookPayload) (model.Book, error) {
	var book model.Book
	u := s.baseURL + "/api/books"
	if err := s.sendJSON(ctx, http.MethodPost, u, payload, &book); err != nil {
		return model.Book{}, err
	}
	return book, nil
}

func (s *Service) UpdateBook(ctx context.Context, id int, payload model.BookPayload) (model.Book, error) {
	var book model.Book
	u := fmt.Sprintf("%s/api/books/%d", s.baseURL, id)
	if err := s.sendJSON(ctx, http.MethodPut, u, payload, &book); err != nil {
		return model.Book{}, err
	}
	return book, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int) error {
	u := fmt.Sprintf("%s/api/books/%d", s.baseURL, id)
	_, _, err := s.client.Do(ctx, httpretry.Request{Method: http.MethodDelete, URL: u})
	return err
}

func (s *Service) Meta(ctx context.Context) (model.Meta, error) {
	var meta model.Meta
	if err := s.getJSON(ctx, s.baseURL+"/api/meta", &meta); err != nil {
		return model.Meta{}, err
	}
	return meta, nil
}

func (s *Service) getJSON(ctx context.Context, u string, out any) error {
	data, _, err := s.client.Do(ctx, httpretry.Request{Method: http.MethodGet, URL: u})
	if err != nil {
		return err
	}
	return errors.Wrap(json.Unmarshal(data, out), "decode response")
}

func (s *Service) sendJSON(ctx context.Context, method, u string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode payload")
	}
	data, _, err := s.client.Do(ctx, httpretry.Request{
		Method: method,
		URL:    u,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
	if err != nil {
		return err
	}
	return errors.Wrap(json.Unmarshal(data, out), "decode response")
}
