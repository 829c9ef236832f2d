package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/devices?page=3&search=+ABC+&ownerId=x&dup=1&dup=2", nil)

	params := ListParams(req)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, "ABC", params.Search)
	assert.Equal(t, map[string]string{"ownerId": "x"}, params.Values)
}

func TestListParamsMalformedPage(t *testing.T) {
	for _, raw := range []string{"", "0", "-2", "abc", "1e3"} {
		req := httptest.NewRequest(http.MethodGet, "/devices?page="+raw, nil)
		assert.Equal(t, 1, ListParams(req).Page, raw)
	}
}

func TestListParamsNormalisesSearch(t *testing.T) {
	// "I" followed by a combining dot above composes to U+0130.
	req := httptest.NewRequest(http.MethodGet, "/devices?search=I%CC%87zmir", nil)
	assert.Equal(t, "İzmir", ListParams(req).Search)

	long := strings.Repeat("a", 250)
	req = httptest.NewRequest(http.MethodGet, "/devices?search="+long, nil)
	assert.Len(t, ListParams(req).Search, maxSearch)
}
