package dto

// DefaultPerPage is the page size of every listing screen.
const DefaultPerPage = 20

// Page is the payload of a screen: the view to render plus its data.
type Page struct {
	Component string      `json:"component"`
	Props     interface{} `json:"props"`
}

func NewPage(component string, props interface{}) *Page {
	return &Page{Component: component, Props: props}
}

// Flash is returned by every mutating endpoint. Type is "success" or "error";
// Redirect names the screen the client should show next.
type Flash struct {
	Message  string `json:"message,omitempty"`
	Type     string `json:"type,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

func Success(msg, redirect string) Flash {
	return Flash{Message: msg, Type: FlashSuccess, Redirect: redirect}
}

func Failure(msg, redirect string) Flash {
	return Flash{Message: msg, Type: FlashError, Redirect: redirect}
}

// Paginated is the list envelope shared by all index screens.
type Paginated[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginated[T any](data []T, total int64, page, limit int) Paginated[T] {
	if data == nil {
		data = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Paginated[T]{Data: data, Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// ListFilter carries the common query parameters of index screens.
type ListFilter struct {
	Search string `form:"search"`
	Page   int    `form:"page,default=1"`
}

// Normalize clamps paging to sane values and returns (page, limit, offset).
func (f *ListFilter) Normalize() (int, int, int) {
	if f.Page < 1 {
		f.Page = 1
	}
	return f.Page, DefaultPerPage, (f.Page - 1) * DefaultPerPage
}

// Option is a value/label pair for select inputs.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
