package handler

import (
	"context"

	"github.com/bookops/bookshelf-service/catalog/internal/model"
	"github.com/bookops/bookshelf-service/catalog/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CatalogService interface {
	ListBooks(ctx context.Context, q model.ListQuery) (model.ListBooks, error)
	CreateBook(ctx context.Context, p model.BookPayload) (model.Book, error)
	UpdateBook(ctx context.Context, id int, p model.BookPayload) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	Meta(ctx context.Context) model.Meta
	Stats(ctx context.Context, pageSize int) (model.Stats, error)
	ListAuditEvents(ctx context.Context, limit int) ([]model.AuditEvent, error)
}

var _ CatalogService = (*service.Service)(nil)
