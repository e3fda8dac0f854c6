package tableau

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workbooklisting builds the JSON for a workbooks page.
func workbookListing(total int, items ...string) string {
	return fmt.Sprintf(`{
		"pagination": {"pageNumber": "1", "pageSize": "100", "totalAvailable": "%d"},
		"workbooks": {"workbook": [%s]}
	}`, total, joinItems(items))
}

func datasourceListing(total int, items ...string) string {
	return fmt.Sprintf(`{
		"pagination": {"pageNumber": "1", "pageSize": "100", "totalAvailable": "%d"},
		"datasources": {"datasource": [%s]}
	}`, total, joinItems(items))
}

func joinItems(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item
	}

	return out
}

func resourceJSON(id, name, project string) string {
	return fmt.Sprintf(`{"id": %q, "name": %q, "project": {"id": "p1", "name": %q}}`, id, name, project)
}

func TestResolve_ExactlyOneMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/"+defaultAPIVersion+"/sites/site-1/workbooks", r.URL.Path)
		assert.Equal(t, "name:eq:Sales,projectName:eq:Finance", r.URL.Query().Get("filter"))

		_, _ = w.Write([]byte(workbookListing(1, resourceJSON("wb-1", "Sales", "Finance"))))
	}))
	defer srv.Close()

	session := newTestSession(newTestClient(t, srv.URL))

	res, err := session.Resolve(context.Background(), ResourceQuery{Kind: KindWorkbook, Name: "Sales", Project: "Finance"})
	require.NoError(t, err)
	assert.Equal(t, "wb-1", res.ID)
	assert.Equal(t, KindWorkbook, res.Kind)
	assert.Equal(t, "Sales", res.Name)
	assert.Equal(t, "Finance", res.Project)
}

func TestResolve_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(workbookListing(0)))
	}))
	defer srv.Close()

	session := newTestSession(newTestClient(t, srv.URL))

	_, err := session.Resolve(context.Background(), ResourceQuery{Kind: KindWorkbook, Name: "Nope", Project: "Finance"})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `"Nope"`)
	assert.Contains(t, err.Error(), `"Finance"`)
}

func TestResolve_AmbiguousMatch(t *testing.T) {
	// Two resources with the same name inside one project must never be
	// resolved by picking the first.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(workbookListing(2,
			resourceJSON("wb-1", "Sales", "Finance"),
			resourceJSON("wb-2", "Sales", "Finance"),
		)))
	}))
	defer srv.Close()

	session := newTestSession(newTestClient(t, srv.URL))

	_, err := session.Resolve(context.Background(), ResourceQuery{Kind: KindWorkbook, Name: "Sales", Project: "Finance"})
	require.ErrorIs(t, err, ErrAmbiguous)
	assert.Contains(t, err.Error(), "2 matches")
}

func TestResolve_ExactMatchIsCaseSensitive(t *testing.T) {
	// The server-side filter can return near matches; only an exact
	// case-sensitive (name, project) pair counts.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(workbookListing(2,
			resourceJSON("wb-1", "sales", "Finance"),
			resourceJSON("wb-2", "Sales", "finance"),
		)))
	}))
	defer srv.Close()

	session := newTestSession(newTestClient(t, srv.URL))

	_, err := session.Resolve(context.Background(), ResourceQuery{Kind: KindWorkbook, Name: "Sales", Project: "Finance"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_DatasourceEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/"+defaultAPIVersion+"/sites/site-1/datasources", r.URL.Path)

		_, _ = w.Write([]byte(datasourceListing(1, resourceJSON("ds-1", "Orders", "Finance"))))
	}))
	defer srv.Close()

	session := newTestSession(newTestClient(t, srv.URL))

	res, err := session.Resolve(context.Background(), ResourceQuery{Kind: KindDatasource, Name: "Orders", Project: "Finance"})
	require.NoError(t, err)
	assert.Equal(t, "ds-1", res.ID)
	assert.Equal(t, KindDatasource, res.Kind)
}

func TestResolve_Paginates(t *testing.T) {
	// 120 total: page 1 returns 100 fillers, page 2 the real match.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("pageNumber")

		switch page {
		case "1":
			items := make([]string, 0, 100)
			for i := 0; i < 100; i++ {
				items = append(items, resourceJSON(fmt.Sprintf("wb-%d", i), "Sales", "Other"))
			}

			_, _ = w.Write([]byte(workbookListing(120, items...)))
		case "2":
			items := make([]string, 0, 20)
			for i := 100; i < 119; i++ {
				items = append(items, resourceJSON(fmt.Sprintf("wb-%d", i), "Sales", "Other"))
			}
			items = append(items, resourceJSON("wb-match", "Sales", "Finance"))

			_, _ = w.Write([]byte(workbookListing(120, items...)))
		default:
			t.Errorf("unexpected page %s", page)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	session := newTestSession(newTestClient(t, srv.URL))

	res, err := session.Resolve(context.Background(), ResourceQuery{Kind: KindWorkbook, Name: "Sales", Project: "Finance"})
	require.NoError(t, err)
	assert.Equal(t, "wb-match", res.ID)
}

func TestResolve_Idempotent(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(workbookListing(1, resourceJSON("wb-1", "Sales", "Finance"))))
	}))
	defer srv.Close()

	session := newTestSession(newTestClient(t, srv.URL))
	query := ResourceQuery{Kind: KindWorkbook, Name: "Sales", Project: "Finance"}

	first, err := session.Resolve(context.Background(), query)
	require.NoError(t, err)

	second, err := session.Resolve(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, calls)
}

func TestParseResourceKind(t *testing.T) {
	kind, err := ParseResourceKind("workbook")
	require.NoError(t, err)
	assert.Equal(t, KindWorkbook, kind)

	kind, err = ParseResourceKind("datasources")
	require.NoError(t, err)
	assert.Equal(t, KindDatasource, kind)

	_, err = ParseResourceKind("flows")
	assert.Error(t, err)
}
