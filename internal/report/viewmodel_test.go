package report

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sla-console/sla-console/internal/slaapi"
	"github.com/sla-console/sla-console/internal/view"
)

func strPtr(s string) *string { return &s }

func TestBuildRowsFormatsMissingValues(t *testing.T) {
	offline := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	rows := buildRows([]slaapi.ReportRow{{
		IncidentLogPRK: 42,
		NVRAlias:       "NVR-01",
		CameraName:     "CAM-7",
		ZoneName:       strPtr("Marina"),
		OfflineTime:    &offline,
		PenaltyAmount:  1250.5,
	}})

	require.Len(t, rows, 1)
	row := rows[0]
	require.Equal(t, int64(42), row.IncidentID)
	require.True(t, row.Waivable)
	require.False(t, row.Waived)
	require.Len(t, row.Cells, len(reportColumns))

	byKey := map[string]view.Cell{}
	for _, cell := range row.Cells {
		byKey[cell.Key] = cell
	}
	require.Equal(t, "NVR-01", byKey["nvrAlias_TXT"].Text)
	require.Equal(t, "Marina", byKey["ZoneName"].Text)
	require.Equal(t, view.MissingCell, byKey["StreetName"].Text)
	require.Equal(t, view.MissingCell, byKey["OnlineTime"].Text)
	require.Equal(t, "AED 1,250.50", byKey["PenaltyAmount"].Text)
	require.True(t, byKey["waive"].Custom)
}

func TestBuildRowsZeroPenaltyNotWaivable(t *testing.T) {
	sub := int64(3)
	rows := buildRows([]slaapi.ReportRow{
		{IncidentLogPRK: 1, PenaltyAmount: 0},
		{IncidentLogPRK: 2, PenaltyAmount: 50, SubCategoryID: &sub},
	})
	require.False(t, rows[0].Waivable)
	require.True(t, rows[1].Waivable)
	require.True(t, rows[1].Waived)
}

func TestSortURLsToggleAndResetPage(t *testing.T) {
	base := url.Values{"zone_id": []string{"1"}, "page": []string{"4"}}
	current := view.SortSpec{Key: "PenaltyAmount", Dir: view.SortAsc}

	urls := sortURLs("/report", base, current)
	require.NotContains(t, urls, "waive")

	penalty, err := url.Parse(urls["PenaltyAmount"])
	require.NoError(t, err)
	q := penalty.Query()
	require.Equal(t, view.SortDesc, q.Get("sort_dir"), "same column inverts")
	require.Equal(t, "1", q.Get("zone_id"), "filter scope preserved")
	require.Empty(t, q.Get("page"), "sorting returns to the first page")

	zone, err := url.Parse(urls["ZoneName"])
	require.NoError(t, err)
	require.Equal(t, view.SortAsc, zone.Query().Get("sort_dir"), "new column starts ascending")
}

func TestPageURLKeepsSortAndScope(t *testing.T) {
	base := url.Values{"zone_id": []string{"1"}}
	sort := view.SortSpec{Key: "ZoneName", Dir: view.SortDesc}
	href := pageURL("/report", base, sort, 2)
	require.True(t, strings.HasPrefix(href, "/report?"))
	parsed, err := url.Parse(href)
	require.NoError(t, err)
	require.Equal(t, "2", parsed.Query().Get("page"))
	require.Equal(t, "ZoneName", parsed.Query().Get("sort_key"))
	require.Equal(t, "1", parsed.Query().Get("zone_id"))
}
