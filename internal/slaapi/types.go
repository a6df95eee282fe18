package slaapi

import (
	"io"
	"time"
)

// Token is the response of a successful login call.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// DashboardKPIs is the aggregate snapshot rendered as dashboard cards.
// ErrorDetails carries per-KPI failures for partially successful responses;
// the values that did arrive are still usable.
type DashboardKPIs struct {
	TotalZones           int               `json:"total_zones"`
	TotalStreets         int               `json:"total_streets"`
	TotalUnits           int               `json:"total_units"`
	TotalOpenIncidents   int               `json:"total_open_incidents"`
	TotalClosedIncidents int               `json:"total_closed_incidents"`
	TotalPenalty         float64           `json:"total_penalty,string"`
	ErrorDetails         map[string]string `json:"error_details"`
}

// ReportRow is one camera downtime record of the penalty report. Field
// names follow the upstream column naming so drill-down sort keys match.
type ReportRow struct {
	IncidentLogPRK int64      `json:"IncidentLog_PRK"`
	NVRPRK         int64      `json:"NVR_PRK"`
	NVRAlias       string     `json:"nvrAlias_TXT"`
	NVRIPAddress   string     `json:"nvrIPAddress_TXT"`
	CameraPRK      int64      `json:"Camera_PRK"`
	CameraName     string     `json:"camName_TXT"`
	ZoneID         *int64     `json:"gclZone_FRK"`
	ZoneName       *string    `json:"ZoneName"`
	StreetID       *int64     `json:"gclStreet_FRK"`
	StreetName     *string    `json:"StreetName"`
	BuildingID     *int64     `json:"gclBuilding_FRK"`
	BuildingName   *string    `json:"BuildingName"`
	UnitID         *int64     `json:"gclUnit_FRK"`
	UnitName       *string    `json:"UnitName"`
	OfflineTime    *time.Time `json:"OfflineTime"`
	OnlineTime     *time.Time `json:"OnlineTime"`
	OfflineMinutes *int64     `json:"OfflineMinutes"`
	PenaltyAmount  float64    `json:"PenaltyAmount"`
	SubCategoryID  *int64     `json:"inlSubCategory_FRK"`
}

// ReportPage is one page of the penalty report.
type ReportPage struct {
	Rows      []ReportRow `json:"data"`
	TotalRows int         `json:"total_rows"`
}

// Option is a generic {id, name} pick-list entry.
type Option struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MasterFilters carries the pick-list options for the filter bar. When
// cascade parameters were supplied, streets and units are already scoped
// to the selected ancestors.
type MasterFilters struct {
	Zones   []Option `json:"zones"`
	Streets []Option `json:"streets"`
	Units   []Option `json:"units"`
}

// EntityPage is a one-shot master data listing (zones, streets, units).
type EntityPage struct {
	Rows       []Option `json:"data"`
	TotalCount int      `json:"total_count"`
}

// Incident is one row of the incident drill-down listing.
type Incident struct {
	IncidentLogPRK int64      `json:"IncidentLog_PRK"`
	DateTime       *time.Time `json:"inlDateTime_DTM"`
	AlarmMessage   string     `json:"inlAlarmMessage_TXT"`
	Status         string     `json:"status"`
	ZoneName       *string    `json:"ZoneName"`
	StreetName     *string    `json:"StreetName"`
	UnitName       *string    `json:"UnitName"`
}

// IncidentPage is a skip/limit page of incidents.
type IncidentPage struct {
	Rows       []Incident `json:"data"`
	TotalCount int        `json:"total_count"`
}

// WaiveRequest cancels the penalty of one incident, tagged with a reason
// sub-category. The date range scopes the server-side cache rebuild.
type WaiveRequest struct {
	DateFrom       time.Time `json:"date_from"`
	DateTo         time.Time `json:"date_to"`
	IncidentLogPRK int64     `json:"incident_log_prk"`
	SubCategoryID  int64     `json:"subcategory_id"`
}

// Download is a streamed report attachment. The caller owns Body.
type Download struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}
