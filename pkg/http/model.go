package http

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Page is one window of a larger result list. Next is the offset of the
// following page and is omitted on the last one.
type Page struct {
	Rows   interface{} `json:"rows"`
	Total  int64       `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
	Next   *int        `json:"next,omitempty"`
}

// NewPage builds the page for rows[offset:offset+limit] of total.
func NewPage(rows interface{}, total int64, offset, limit int) *Page {
	p := &Page{Rows: rows, Total: total, Offset: offset, Limit: limit}
	if next := offset + limit; int64(next) < total {
		p.Next = &next
	}
	return p
}
