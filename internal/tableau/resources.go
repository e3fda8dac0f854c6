package tableau

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

// listPageSize is the page size requested when listing resources.
const listPageSize = 100

// paginationInfo mirrors the REST API pagination block. The API encodes
// these numbers as JSON strings.
type paginationInfo struct {
	PageNumber     string `json:"pageNumber"`
	PageSize       string `json:"pageSize"`
	TotalAvailable string `json:"totalAvailable"`
}

func (p paginationInfo) totalAvailable() int {
	n, err := strconv.Atoi(p.TotalAvailable)
	if err != nil {
		return 0
	}

	return n
}

// resourceItem mirrors one workbook or datasource entry in a listing.
type resourceItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Project struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"project"`
}

// workbooksListResponse mirrors GET /sites/{id}/workbooks.
type workbooksListResponse struct {
	Pagination paginationInfo `json:"pagination"`
	Workbooks  struct {
		Workbook []resourceItem `json:"workbook"`
	} `json:"workbooks"`
}

// datasourcesListResponse mirrors GET /sites/{id}/datasources.
type datasourcesListResponse struct {
	Pagination  paginationInfo `json:"pagination"`
	Datasources struct {
		Datasource []resourceItem `json:"datasource"`
	} `json:"datasources"`
}

// Resolve maps a (kind, name, project) query to exactly one server-side
// resource. The listing is filtered server-side by name and project, then
// re-checked here with exact case-sensitive comparison: zero matches is
// ErrNotFound, more than one is ErrAmbiguous. A silent first-match pick
// could refresh the wrong resource, so ambiguity is always a hard error.
func (s *Session) Resolve(ctx context.Context, query ResourceQuery) (Resource, error) {
	items, err := s.listFiltered(ctx, query)
	if err != nil {
		return Resource{}, fmt.Errorf("resolving %s: %w", query, err)
	}

	var matches []resourceItem

	for _, item := range items {
		if item.Name == query.Name && item.Project.Name == query.Project {
			matches = append(matches, item)
		}
	}

	switch len(matches) {
	case 0:
		return Resource{}, fmt.Errorf("%w: no %s", ErrNotFound, query)
	case 1:
		s.client.logger.Info("resolved resource",
			slog.String("kind", query.Kind.String()),
			slog.String("name", query.Name),
			slog.String("project", query.Project),
			slog.String("id", matches[0].ID),
		)

		return Resource{
			ID:      matches[0].ID,
			Kind:    query.Kind,
			Name:    matches[0].Name,
			Project: matches[0].Project.Name,
		}, nil
	default:
		return Resource{}, fmt.Errorf("%w: %d matches for %s", ErrAmbiguous, len(matches), query)
	}
}

// listFiltered pages through the listing endpoint for the query's kind,
// filtered by name and project name.
func (s *Session) listFiltered(ctx context.Context, query ResourceQuery) ([]resourceItem, error) {
	var endpoint string

	switch query.Kind {
	case KindWorkbook:
		endpoint = "/workbooks"
	case KindDatasource:
		endpoint = "/datasources"
	default:
		return nil, fmt.Errorf("unhandled resource kind %v", query.Kind)
	}

	var all []resourceItem

	for page := 1; ; page++ {
		params := url.Values{
			"filter":     {fmt.Sprintf("name:eq:%s,projectName:eq:%s", query.Name, query.Project)},
			"pageSize":   {strconv.Itoa(listPageSize)},
			"pageNumber": {strconv.Itoa(page)},
		}

		path := s.sitePath(endpoint) + "?" + params.Encode()

		items, total, err := s.listPage(ctx, query.Kind, path)
		if err != nil {
			return nil, err
		}

		all = append(all, items...)

		if len(items) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

// listPage fetches one page and returns its items plus the server-reported
// total across all pages.
func (s *Session) listPage(ctx context.Context, kind ResourceKind, path string) ([]resourceItem, int, error) {
	switch kind {
	case KindWorkbook:
		var resp workbooksListResponse
		if err := s.client.get(ctx, path, s.token, &resp); err != nil {
			return nil, 0, err
		}

		return resp.Workbooks.Workbook, resp.Pagination.totalAvailable(), nil
	case KindDatasource:
		var resp datasourcesListResponse
		if err := s.client.get(ctx, path, s.token, &resp); err != nil {
			return nil, 0, err
		}

		return resp.Datasources.Datasource, resp.Pagination.totalAvailable(), nil
	default:
		return nil, 0, fmt.Errorf("unhandled resource kind %v", kind)
	}
}
