package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteErrorDetail writes a JSON error response with detail.
func WriteErrorDetail(w http.ResponseWriter, status int, msg, detail string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Detail: detail})
}

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination extracts limit and offset from query params with defaults.
// Returns an error if values are present but invalid.
func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{Limit: 50, Offset: 0}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid limit %q: must be an integer", v)
		}
		if n < 1 {
			return p, fmt.Errorf("invalid limit %d: must be >= 1", n)
		}
		p.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid offset %q: must be an integer", v)
		}
		if n < 0 {
			return p, fmt.Errorf("invalid offset %d: must be >= 0", n)
		}
		p.Offset = n
	}
	return p, nil
}

// SortParam holds a parsed sort parameter.
type SortParam struct {
	Field string
	Desc  bool
}

// ParseSort extracts sort field and direction from query params.
// Returns the default if none specified. Validates against the allowlist.
func ParseSort(r *http.Request, defaultField string, allowed map[string]string) SortParam {
	s := SortParam{Field: defaultField}
	if strings.HasPrefix(defaultField, "-") {
		s.Field = defaultField[1:]
		s.Desc = true
	}

	sort := r.URL.Query().Get("sort")
	if sort == "" {
		return s
	}

	desc := false
	if strings.HasPrefix(sort, "-") {
		desc = true
		sort = sort[1:]
	}

	// Unknown fields keep the default rather than leaking user input into SQL.
	if _, ok := allowed[sort]; ok {
		s.Field = sort
		s.Desc = desc
	}

	return s
}

// SQLOrderBy returns a full ORDER BY fragment like "created_at DESC", using
// the allowlist mapping so user input never reaches the SQL directly.
func (s SortParam) SQLOrderBy(allowed map[string]string) string {
	col, ok := allowed[s.Field]
	if !ok {
		for _, c := range allowed {
			col = c
			break
		}
	}
	if s.Desc {
		return col + " DESC"
	}
	return col + " ASC"
}

// QueryString extracts a non-empty string query parameter.
func QueryString(r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", false
	}
	return v, true
}

// QueryInt64List extracts a comma-separated list of int64s from a query param.
func QueryInt64List(r *http.Request, name string) []int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	var result []int64
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			result = append(result, n)
		}
	}
	return result
}

// PathInt64 extracts an int64 from a chi URL parameter.
func PathInt64(r *http.Request, name string) (int64, error) {
	v := chi.URLParam(r, name)
	if v == "" {
		return 0, fmt.Errorf("missing path parameter: %s", name)
	}
	return strconv.ParseInt(v, 10, 64)
}

// DecodeJSON reads and decodes a JSON request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
