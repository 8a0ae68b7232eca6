package dto

// CursorRequest paginación por cursor para listados del log.
type CursorRequest struct {
	Cursor int64 `query:"cursor"`
	Limit  int   `query:"limit"`
}

// CursorResponse metadatos de página en respuestas. NextCursor 0 indica la última página.
type CursorResponse struct {
	Limit      int   `json:"limit"`
	NextCursor int64 `json:"next_cursor"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
