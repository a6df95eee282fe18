package report

import (
	"net/url"
	"strconv"

	"github.com/sla-console/sla-console/internal/slaapi"
	"github.com/sla-console/sla-console/internal/view"
)

// reportColumns lists the table columns in display order. Keys double as
// upstream sort keys, so header clicks pass straight through to the API.
var reportColumns = []view.Column{
	{Key: "nvrAlias_TXT", Header: "NVR"},
	{Key: "nvrIPAddress_TXT", Header: "NVR IP"},
	{Key: "camName_TXT", Header: "Camera"},
	{Key: "ZoneName", Header: "Zone"},
	{Key: "StreetName", Header: "Street"},
	{Key: "BuildingName", Header: "Building"},
	{Key: "UnitName", Header: "Unit"},
	{Key: "OfflineTime", Header: "Offline At"},
	{Key: "OnlineTime", Header: "Online At"},
	{Key: "OfflineMinutes", Header: "Minutes Offline"},
	{Key: "PenaltyAmount", Header: "Penalty"},
	{Key: "waive", Header: "Waive", Custom: true},
}

// RowVM is one report row prepared for the template.
type RowVM struct {
	IncidentID int64
	Cells      []view.Cell
	// Waivable gates the waiver control; zero-penalty rows keep it
	// disabled.
	Waivable bool
	Waived   bool
}

func buildRows(rows []slaapi.ReportRow) []RowVM {
	out := make([]RowVM, 0, len(rows))
	for _, row := range rows {
		vm := RowVM{
			IncidentID: row.IncidentLogPRK,
			Waivable:   row.PenaltyAmount > 0,
			Waived:     row.SubCategoryID != nil,
		}
		for _, col := range reportColumns {
			cell := view.Cell{Key: col.Key, Custom: col.Custom}
			if !col.Custom {
				cell.Text = view.FormatCell(col.Key, cellValue(row, col.Key))
			}
			vm.Cells = append(vm.Cells, cell)
		}
		out = append(out, vm)
	}
	return out
}

func cellValue(row slaapi.ReportRow, key string) any {
	switch key {
	case "nvrAlias_TXT":
		return row.NVRAlias
	case "nvrIPAddress_TXT":
		return row.NVRIPAddress
	case "camName_TXT":
		return row.CameraName
	case "ZoneName":
		return row.ZoneName
	case "StreetName":
		return row.StreetName
	case "BuildingName":
		return row.BuildingName
	case "UnitName":
		return row.UnitName
	case "OfflineTime":
		return row.OfflineTime
	case "OnlineTime":
		return row.OnlineTime
	case "OfflineMinutes":
		return row.OfflineMinutes
	case "PenaltyAmount":
		return row.PenaltyAmount
	default:
		return nil
	}
}

// sortURLs precomputes one header link per sortable column: the current
// scope with the toggled sort applied and the page reset to the first.
func sortURLs(path string, base url.Values, sort view.SortSpec) map[string]string {
	out := make(map[string]string, len(reportColumns))
	for _, col := range reportColumns {
		if col.Custom {
			continue
		}
		query := sort.Toggle(col.Key).Query(base)
		query.Del("page")
		out[col.Key] = path + "?" + query.Encode()
	}
	return out
}

func pageURL(path string, base url.Values, sort view.SortSpec, page int) string {
	query := sort.Query(base)
	query.Set("page", strconv.Itoa(page))
	return path + "?" + query.Encode()
}
