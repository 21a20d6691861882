package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/IBM/sarama"
	"github.com/bookops/bookshelf-service/catalog/internal/errs"
	"github.com/bookops/bookshelf-service/catalog/internal/model"
	catalogRepo "github.com/bookops/bookshelf-service/catalog/internal/repository"
	"github.com/bookops/bookshelf-service/pkg/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	log      *zap.Logger
	repo     catalogRepo.Repository
	producer sarama.SyncProducer
}

// NewService wires the repository and an optional audit producer; a nil
// producer disables the audit trail.
func NewService(repo catalogRepo.Repository, producer sarama.SyncProducer, log *zap.Logger) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		producer: producer,
	}
}

func (s *Service) ListBooks(ctx context.Context, q model.ListQuery) (model.ListBooks, error) {
	list, err := s.repo.ListBooks(ctx, q.Normalize())
	if err != nil {
		return model.ListBooks{}, err
	}
	for i := range list.Items {
		list.Items[i] = rounded(list.Items[i])
	}
	return list, nil
}

func (s *Service) CreateBook(ctx context.Context, p model.BookPayload) (model.Book, error) {
	in, err := normalizePayload(p)
	if err != nil {
		return model.Book{}, err
	}
	book, err := s.repo.CreateBook(ctx, in)
	if err != nil {
		return model.Book{}, err
	}
	s.audit(model.AuditCreated, book)
	return rounded(book), nil
}

func (s *Service) UpdateBook(ctx context.Context, id int, p model.BookPayload) (model.Book, error) {
	in, err := normalizePayload(p)
	if err != nil {
		return model.Book{}, err
	}
	book, err := s.repo.UpdateBook(ctx, id, in)
	if err != nil {
		return model.Book{}, err
	}
	s.audit(model.AuditUpdated, book)
	return rounded(book), nil
}

func (s *Service) DeleteBook(ctx context.Context, id int) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.audit(model.AuditDeleted, model.Book{ID: id})
	return nil
}

func (s *Service) Meta(_ context.Context) model.Meta {
	return model.Meta{
		PageSizes:        model.AllowedPageSizes,
		Categories:       model.CategoryOptions,
		SortFields:       model.AllowedSortFields,
		PlaceholderImage: model.PlaceholderImage,
	}
}

func (s *Service) Stats(ctx context.Context, pageSize int) (model.Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	if !model.ValidPageSize(pageSize) {
		pageSize = model.DefaultPageSize
	}
	stats.PageSize = pageSize
	stats.AverageRating = round2(stats.AverageRating)
	stats.TotalValue = round2(stats.TotalValue)
	return stats, nil
}

func (s *Service) ListAuditEvents(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListAuditEvents(ctx, limit)
}

// RecordAuditEvent is the consumer-side write of a published event.
func (s *Service) RecordAuditEvent(ctx context.Context, ev model.AuditEvent) error {
	return s.repo.InsertAuditEvent(ctx, ev)
}

func (s *Service) audit(action model.AuditAction, book model.Book) {
	if s.producer == nil {
		return
	}
	ev := model.AuditEvent{
		EventUID: uuid.NewString(),
		Action:   action,
		BookID:   book.ID,
		Title:    book.Title,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Warn("audit marshal", zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{Topic: kafka.AuditTopic, Value: sarama.StringEncoder(data)}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.log.Warn("audit publish", zap.Error(err))
	}
}

// normalizePayload trims and validates a payload field by field; unknown
// categories coerce to Other, a missing image gets the placeholder.
func normalizePayload(p model.BookPayload) (model.BookInput, error) {
	title := strings.TrimSpace(p.Title)
	author := strings.TrimSpace(p.Author)
	category := strings.TrimSpace(p.Category)
	imageURL := strings.TrimSpace(p.ImageURL)

	if title == "" {
		return model.BookInput{}, errs.Validation("Title is required.")
	}
	if author == "" {
		return model.BookInput{}, errs.Validation("Author is required.")
	}
	if p.Year == nil {
		return model.BookInput{}, errs.Validation("Year is required (number).")
	}
	if *p.Year < 0 || *p.Year > 2100 {
		return model.BookInput{}, errs.Validation("Year must be between 0 and 2100.")
	}
	if category == "" || !model.KnownCategory(category) {
		category = model.DefaultCategory
	}
	rating := 0.0
	if p.Rating != nil {
		rating = *p.Rating
	}
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return model.BookInput{}, errs.Validation("Rating must be a number.")
	}
	if rating < 0 || rating > 5 {
		return model.BookInput{}, errs.Validation("Rating must be 0–5.")
	}
	price := 0.0
	if p.Price != nil {
		price = *p.Price
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return model.BookInput{}, errs.Validation("Price must be a number.")
	}
	if price < 0 {
		return model.BookInput{}, errs.Validation("Price must be >= 0.")
	}
	if imageURL == "" {
		imageURL = model.PlaceholderImage
	}

	return model.BookInput{
		Title:    title,
		Author:   author,
		Year:     *p.Year,
		Category: category,
		Rating:   rating,
		Price:    price,
		ImageURL: imageURL,
	}, nil
}

func rounded(b model.Book) model.Book {
	b.Rating = round2(b.Rating)
	b.Price = round2(b.Price)
	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
