// Package report implements the SLA penalty report: the paginated table,
// penalty waivers, server cache refreshes and file exports.
package report

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/shared"
	"github.com/sla-console/sla-console/internal/slaapi"
	"github.com/sla-console/sla-console/internal/view"
)

// API is the slice of the SLA client the report needs.
type API interface {
	Report(ctx context.Context, token string, scope filters.FilterSet, skip, limit int, sortKey, sortDir string) (slaapi.ReportPage, error)
	SubCategories(ctx context.Context, token string) ([]slaapi.Option, error)
	WaivePenalty(ctx context.Context, token string, req slaapi.WaiveRequest) error
	RefreshCache(ctx context.Context, token string, dateFrom, dateTo time.Time) error
	DownloadCSV(ctx context.Context, token string, scope filters.FilterSet) (*slaapi.Download, error)
	DownloadPDF(ctx context.Context, token string, scope filters.FilterSet) (*slaapi.Download, error)
}

// Invalidator drops derived caches after a mutation. The dashboard KPI
// cache and the filter option cache both satisfy it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Page is one resolved slice of the penalty report.
type Page struct {
	Rows       []slaapi.ReportRow
	Pagination shared.Pagination
	Sort       view.SortSpec
}

// Export is a fully buffered report download. Buffering keeps concurrent
// identical exports collapsible through singleflight.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service coordinates report reads and mutations against the SLA API.
type Service struct {
	api          API
	invalidators []Invalidator
	exports      singleflight.Group
}

// NewService constructs the report service. Invalidators run after every
// successful waive or cache refresh.
func NewService(api API, invalidators ...Invalidator) *Service {
	return &Service{api: api, invalidators: invalidators}
}

// Fetch loads one page of the report. The requested page is clamped into
// the valid range once the total row count is known, so a stale deep link
// lands on the last page instead of an empty one.
func (s *Service) Fetch(ctx context.Context, token string, scope filters.FilterSet, page, perPage int, sort view.SortSpec) (Page, error) {
	if perPage <= 0 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}
	skip := (page - 1) * perPage
	result, err := s.api.Report(ctx, token, scope, skip, perPage, sort.Key, sort.Dir)
	if err != nil {
		return Page{}, err
	}

	pg := shared.NewPagination(page, perPage, result.TotalRows)
	if pg.Skip() != skip && result.TotalRows > 0 {
		// Requested page fell past the end; re-fetch the clamped one.
		result, err = s.api.Report(ctx, token, scope, pg.Skip(), pg.PerPage, sort.Key, sort.Dir)
		if err != nil {
			return Page{}, err
		}
	}

	return Page{Rows: result.Rows, Pagination: pg, Sort: sort}, nil
}

// SubCategories returns the waiver reason pick list.
func (s *Service) SubCategories(ctx context.Context, token string) ([]slaapi.Option, error) {
	return s.api.SubCategories(ctx, token)
}

// Waive marks one incident penalty as waived and invalidates derived
// caches so the next read reflects the recalculated amounts.
func (s *Service) Waive(ctx context.Context, token string, scope filters.FilterSet, incidentID, subCategoryID int64) error {
	if incidentID <= 0 {
		return errors.New("report: incident id required")
	}
	if subCategoryID <= 0 {
		return errors.New("report: sub-category required")
	}
	req := slaapi.WaiveRequest{
		DateFrom:       scope.DateFrom,
		DateTo:         scope.DateTo,
		IncidentLogPRK: incidentID,
		SubCategoryID:  subCategoryID,
	}
	if err := s.api.WaivePenalty(ctx, token, req); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

// Refresh asks the SLA API to rebuild its report cache for the scope's
// date range, then drops local caches.
func (s *Service) Refresh(ctx context.Context, token string, scope filters.FilterSet) error {
	if err := s.api.RefreshCache(ctx, token, scope.DateFrom, scope.DateTo); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

// ExportCSV proxies the CSV download for the full filtered result set.
func (s *Service) ExportCSV(ctx context.Context, token string, scope filters.FilterSet) (*Export, error) {
	return s.export(ctx, "csv", scope, func(ctx context.Context) (*slaapi.Download, error) {
		return s.api.DownloadCSV(ctx, token, scope)
	})
}

// ExportPDF proxies the PDF download for the full filtered result set.
func (s *Service) ExportPDF(ctx context.Context, token string, scope filters.FilterSet) (*Export, error) {
	return s.export(ctx, "pdf", scope, func(ctx context.Context) (*slaapi.Download, error) {
		return s.api.DownloadPDF(ctx, token, scope)
	})
}

// export collapses concurrent identical downloads into one upstream call.
// The key deliberately excludes the token: the file depends only on the
// filter scope.
func (s *Service) export(ctx context.Context, format string, scope filters.FilterSet, fetch func(context.Context) (*slaapi.Download, error)) (*Export, error) {
	key := format + ":" + scope.Encode().Encode()
	resultChan := s.exports.DoChan(key, func() (any, error) {
		download, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		defer download.Body.Close()
		data, err := io.ReadAll(download.Body)
		if err != nil {
			return nil, err
		}
		return &Export{Filename: download.Filename, ContentType: download.ContentType, Data: data}, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Export), nil
	}
}

func (s *Service) invalidate(ctx context.Context) error {
	var firstErr error
	for _, inv := range s.invalidators {
		if err := inv.Invalidate(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
