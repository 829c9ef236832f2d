package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/unicode/norm"

	"github.com/firewatch/firewatch/internal/access"
)

const (
	pageParam   = "page"
	searchParam = "search"
	maxSearch   = 100
)

// ListParams extracts the page, search term and remaining single-valued
// filters from the query string. Malformed pages fall back to the first page.
func ListParams(r *http.Request) access.ListParams {
	query := r.URL.Query()

	page, err := strconv.Atoi(query.Get(pageParam))
	if err != nil || page < 1 {
		page = 1
	}

	search := norm.NFC.String(strings.TrimSpace(query.Get(searchParam)))
	if runes := []rune(search); len(runes) > maxSearch {
		search = string(runes[:maxSearch])
	}

	values := make(map[string]string, len(query))
	for key, vals := range query {
		if key == pageParam || key == searchParam || len(vals) != 1 {
			continue
		}
		values[key] = vals[0]
	}

	return access.ListParams{Page: page, Search: search, Values: values}
}

// PathID returns the named URL parameter when it is a well-formed identifier.
// Malformed ids are reported as absent rows.
func PathID(r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if !access.IsUUID(id) {
		return "", false
	}
	return id, true
}
