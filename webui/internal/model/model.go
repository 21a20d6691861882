package model

import (
	"net/url"
	"strconv"
)

// Defaults mirror the catalog API's whitelists; the UI never trusts its
// own copy of paging state over the server's echo.
const (
	DefaultPageSize = 10
	DefaultSortBy   = "created_at"
	DefaultSortDir  = "desc"
	AllCategories   = "all"

	PlaceholderImage = "https://placehold.co/160x220?text=Book"
)

var (
	AllowedPageSizes = []int{5, 10, 20, 50}

	// Categories is the fallback used when the metadata endpoint is
	// unreachable; the server's list wins whenever it is available.
	Categories = []string{"Fantasy", "Sci-Fi", "Classic", "Horror", "Mystery", "Non-Fiction", "Other"}
)

func ValidPageSize(size int) bool {
	for _, s := range AllowedPageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// QueryState is the filter/sort/paging state owned by the controller. It
// travels in the page URL between requests; pageSize also persists in a
// cookie.
type QueryState struct {
	Query    string `query:"q"`
	Category string `query:"category"`
	SortBy   string `query:"sortBy"`
	SortDir  string `query:"sortDir"`
	PageSize int    `query:"pageSize"`
	Page     int    `query:"page"`
}

func NewQueryState() QueryState {
	return QueryState{
		Category: AllCategories,
		SortBy:   DefaultSortBy,
		SortDir:  DefaultSortDir,
		PageSize: DefaultPageSize,
		Page:     1,
	}
}

// Values encodes the state as URL parameters, both for list requests to
// the catalog and for the page's own links. Page, pageSize, sortBy and
// sortDir always appear; q and category only when they narrow the
// result.
func (s QueryState) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(s.Page))
	v.Set("pageSize", strconv.Itoa(s.PageSize))
	v.Set("sortBy", s.SortBy)
	v.Set("sortDir", s.SortDir)
	if s.Query != "" {
		v.Set("q", s.Query)
	}
	if s.Category != "" && s.Category != AllCategories {
		v.Set("category", s.Category)
	}
	return v
}

// WithPage returns a copy of the state pointing at page.
func (s QueryState) WithPage(page int) QueryState {
	s.Page = page
	return s
}

type Book struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Year      int     `json:"year"`
	Category  string  `json:"category"`
	Rating    float64 `json:"rating"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"imageUrl"`
	CreatedAt string  `json:"createdAt"`
}

type BookList struct {
	Items      []Book `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

// BookPayload is the create/update body sent to the catalog.
type BookPayload struct {
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Year     int     `json:"year"`
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl"`
}

type Meta struct {
	PageSizes        []int    `json:"pageSizes"`
	Categories       []string `json:"categories"`
	SortFields       []string `json:"sortFields"`
	PlaceholderImage string   `json:"placeholderImage"`
}

// FormInput carries the raw form values; validation parses them itself
// so a non-numeric year reports against the year field, not as a bind
// failure.
type FormInput struct {
	ID       string `form:"id"`
	Title    string `form:"title"`
	Author   string `form:"author"`
	Year     string `form:"year"`
	Category string `form:"category"`
	Rating   string `form:"rating"`
	Price    string `form:"price"`
	ImageURL string `form:"imageUrl"`
}

// ListView is everything the list template needs.
type ListView struct {
	State      QueryState
	Items      []Book
	Total      int
	TotalPages int
	Categories []string
	PageSizes  []int
	// LoadFailed marks a fetch failure, as opposed to a filtered query
	// that legitimately matched nothing.
	LoadFailed bool
	LoadError  string
	// Flash carries a one-shot message from the preceding action, e.g.
	// a failed delete.
	Flash string
}

type FormMode string

const (
	FormAdd  FormMode = "add"
	FormEdit FormMode = "edit"
)

// FormView is the add/edit overlay state: the user's raw input, its
// per-field validation errors and any server-side failure message.
type FormView struct {
	Mode        FormMode
	State       QueryState
	Input       FormInput
	Categories  []string
	Errors      map[string]string
	ServerError string
}
