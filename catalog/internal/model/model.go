package model

import (
	"math"
	"time"
)

const (
	DefaultCategory  = "Other"
	DefaultPageSize  = 10
	DefaultSortBy    = "created_at"
	DefaultSortDir   = "desc"
	PlaceholderImage = "https://placehold.co/160x220?text=Book"
)

// Whitelists enforced by the repository and advertised by /api/meta.
var (
	AllowedPageSizes  = []int{5, 10, 20, 50}
	AllowedSortFields = []string{"author", "created_at", "price", "rating", "title", "year"}
	CategoryOptions   = []string{"Fantasy", "Sci-Fi", "Classic", "Horror", "Mystery", "Non-Fiction", "Other"}
)

func ValidPageSize(size int) bool {
	for _, s := range AllowedPageSizes {
		if s == size {
			return true
		}
	}
	return false
}

func ValidSortField(field string) bool {
	for _, f := range AllowedSortFields {
		if f == field {
			return true
		}
	}
	return false
}

func KnownCategory(category string) bool {
	for _, c := range CategoryOptions {
		if c == category {
			return true
		}
	}
	return false
}

type Book struct {
	ID        int       `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Author    string    `json:"author" db:"author"`
	Year      int       `json:"year" db:"year"`
	Category  string    `json:"category" db:"category"`
	Rating    float64   `json:"rating" db:"rating"`
	Price     float64   `json:"price" db:"price"`
	ImageURL  string    `json:"imageUrl" db:"image_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// BookPayload is the create/update request body.
type BookPayload struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Year     *int     `json:"year"`
	Category string   `json:"category"`
	Rating   *float64 `json:"rating"`
	Price    *float64 `json:"price"`
	ImageURL string   `json:"imageUrl"`
}

// BookInput is a validated, normalized payload ready for storage.
type BookInput struct {
	Title    string
	Author   string
	Year     int
	Category string
	Rating   float64
	Price    float64
	ImageURL string
}

// ListQuery is the validated /api/books query. Zero values are replaced
// with defaults by Normalize.
type ListQuery struct {
	Page     int    `query:"page"`
	PageSize int    `query:"pageSize"`
	Query    string `query:"q"`
	Category string `query:"category"`
	SortBy   string `query:"sortBy"`
	SortDir  string `query:"sortDir"`
}

// Normalize replaces out-of-whitelist values with the defaults, the way
// the API treats any malformed query: permissive, never an error.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if !ValidPageSize(q.PageSize) {
		q.PageSize = DefaultPageSize
	}
	if !ValidSortField(q.SortBy) {
		q.SortBy = DefaultSortBy
	}
	if q.SortDir != "asc" && q.SortDir != "desc" {
		q.SortDir = DefaultSortDir
	}
	return q
}

type Paging struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

type ListBooks struct {
	Items []Book `json:"items"`
	Paging
}

// TotalPages is ceil(total/pageSize), never below 1.
func TotalPages(total, pageSize int) int {
	if total <= 0 {
		return 1
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

type Meta struct {
	PageSizes        []int    `json:"pageSizes"`
	Categories       []string `json:"categories"`
	SortFields       []string `json:"sortFields"`
	PlaceholderImage string   `json:"placeholderImage"`
}

type Stats struct {
	Total                  int            `json:"total"`
	PageSize               int            `json:"pageSize"`
	AveragePublicationYear int            `json:"averagePublicationYear"`
	AverageRating          float64        `json:"averageRating"`
	TotalValue             float64        `json:"totalValue"`
	CountByCategory        map[string]int `json:"countByCategory"`
}

type AuditAction string

const (
	AuditCreated AuditAction = "CREATED"
	AuditUpdated AuditAction = "UPDATED"
	AuditDeleted AuditAction = "DELETED"
)

type AuditEvent struct {
	EventUID  string      `json:"eventUid" db:"event_uid"`
	Action    AuditAction `json:"action" db:"action"`
	BookID    int         `json:"bookId" db:"book_id"`
	Title     string      `json:"title" db:"title"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}
