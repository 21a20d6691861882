package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bookops/bookshelf-service/catalog/internal/errs"
	"github.com/bookops/bookshelf-service/catalog/internal/model"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Repository interface {
	ListBooks(ctx context.Context, q model.ListQuery) (model.ListBooks, error)
	CreateBook(ctx context.Context, in model.BookInput) (model.Book, error)
	UpdateBook(ctx context.Context, id int, in model.BookInput) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	Stats(ctx context.Context) (model.Stats, error)
	InsertAuditEvent(ctx context.Context, ev model.AuditEvent) error
	ListAuditEvents(ctx context.Context, limit int) ([]model.AuditEvent, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName = `books`
	auditTableName = `audit_events`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var bookColumns = []string{"id", "title", "author", "year", "category", "rating", "price", "image_url", "created_at"}

func booksFilter(b sq.SelectBuilder, q model.ListQuery) sq.SelectBuilder {
	if q.Query != "" {
		like := "%" + q.Query + "%"
		b = b.Where(sq.Or{
			sq.ILike{"title": like},
			sq.ILike{"author": like},
		})
	}
	if q.Category != "" {
		b = b.Where(sq.Eq{"category": q.Category})
	}
	return b
}

// ListBooks counts the filtered set, clamps the page into the valid range
// and fetches that page's rows. Callers pass a query already normalized
// against the whitelists.
func (r *repository) ListBooks(ctx context.Context, q model.ListQuery) (model.ListBooks, error) {
	countQuery, countArgs, err := booksFilter(qb.Select("count(id)").From(booksTableName), q).ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return model.ListBooks{}, errors.Wrap(err, "count books")
	}

	totalPages := model.TotalPages(total, q.PageSize)
	page := q.Page
	if page > totalPages {
		page = totalPages
	}

	query, args, err := booksFilter(qb.Select(bookColumns...).From(booksTableName), q).
		OrderBy(fmt.Sprintf("%s %s", q.SortBy, q.SortDir)).
		Limit(uint64(q.PageSize)).
		Offset(uint64((page - 1) * q.PageSize)).
		ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	books := make([]model.Book, 0, q.PageSize)
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return model.ListBooks{}, errors.Wrap(err, "select books")
	}

	return model.ListBooks{
		Items: books,
		Paging: model.Paging{
			Total:      total,
			Page:       page,
			PageSize:   q.PageSize,
			TotalPages: totalPages,
		},
	}, nil
}

func (r *repository) CreateBook(ctx context.Context, in model.BookInput) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "year", "category", "rating", "price", "image_url").
		Values(in.Title, in.Author, in.Year, in.Category, in.Rating, in.Price, in.ImageURL).
		Suffix("returning " + columnList()).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		r.log.Error("CreateBook", zap.String("q", query), zap.Any("args", args))
		return model.Book{}, wrapConstraint(err)
	}
	return book, nil
}

func (r *repository) UpdateBook(ctx context.Context, id int, in model.BookInput) (model.Book, error) {
	query, args, err := qb.Update(booksTableName).
		Set("title", in.Title).
		Set("author", in.Author).
		Set("year", in.Year).
		Set("category", in.Category).
		Set("rating", in.Rating).
		Set("price", in.Price).
		Set("image_url", in.ImageURL).
		Where(sq.Eq{"id": id}).
		Suffix("returning " + columnList()).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, wrapConstraint(err)
	}
	return book, nil
}

func (r *repository) DeleteBook(ctx context.Context, id int) error {
	query, args, err := qb.Delete(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "delete book")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) Stats(ctx context.Context) (model.Stats, error) {
	q := `
	select count(id)                   as total,
	       coalesce(avg(year), 0)     as avg_year,
	       coalesce(avg(rating), 0)   as avg_rating,
	       coalesce(sum(price), 0)    as total_value
	from books`

	var agg struct {
		Total      int     `db:"total"`
		AvgYear    float64 `db:"avg_year"`
		AvgRating  float64 `db:"avg_rating"`
		TotalValue float64 `db:"total_value"`
	}
	if err := r.db.GetContext(ctx, &agg, q); err != nil {
		return model.Stats{}, errors.Wrap(err, "stats aggregates")
	}

	rows, err := r.db.QueryContext(ctx, `select category, count(id) from books group by category`)
	if err != nil {
		return model.Stats{}, errors.Wrap(err, "stats by category")
	}
	defer rows.Close()

	byCategory := make(map[string]int)
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return model.Stats{}, err
		}
		byCategory[category] = count
	}
	if err := rows.Err(); err != nil {
		return model.Stats{}, err
	}

	avgYear := 0
	if agg.Total > 0 {
		avgYear = int(agg.AvgYear + 0.5)
	}
	return model.Stats{
		Total:                  agg.Total,
		AveragePublicationYear: avgYear,
		AverageRating:          agg.AvgRating,
		TotalValue:             agg.TotalValue,
		CountByCategory:        byCategory,
	}, nil
}

func (r *repository) InsertAuditEvent(ctx context.Context, ev model.AuditEvent) error {
	query, args, err := qb.Insert(auditTableName).
		Columns("event_uid", "action", "book_id", "title").
		Values(ev.EventUID, ev.Action, ev.BookID, ev.Title).
		Suffix("on conflict (event_uid) do nothing").
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "insert audit event")
}

func (r *repository) ListAuditEvents(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	query, args, err := qb.Select("event_uid", "action", "book_id", "title", "created_at").
		From(auditTableName).
		OrderBy("created_at desc").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	events := make([]model.AuditEvent, 0, limit)
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, errors.Wrap(err, "select audit events")
	}
	return events, nil
}

func columnList() string {
	s := bookColumns[0]
	for _, c := range bookColumns[1:] {
		s += ", " + c
	}
	return s
}

// wrapConstraint maps check-constraint violations from the books DDL to a
// user-facing validation error so they surface as 400, not 500.
func wrapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
		return errs.Validation(fmt.Sprintf("Value rejected by constraint %s.", pgErr.ConstraintName))
	}
	return err
}
