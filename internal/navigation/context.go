// Package navigation models the drill-down context handed from a dashboard
// KPI card to its destination view. Exactly one context is live at a time;
// it is encoded into the destination URL, consumed by the destination's
// first render, and gone once the user returns to the dashboard.
package navigation

import (
	"net/url"

	"github.com/sla-console/sla-console/internal/filters"
)

// Kind discriminates the context variants.
type Kind string

const (
	// KindPenaltyReport targets the penalty report with the dashboard's
	// applied filters.
	KindPenaltyReport Kind = "penalty"
	// KindMasterList targets a one-shot master data listing.
	KindMasterList Kind = "master"
	// KindIncidentList targets the incident listing, optionally scoped to
	// a status.
	KindIncidentList Kind = "incidents"
)

// Entity names the master data entity of a KindMasterList context.
type Entity string

const (
	EntityZone   Entity = "zone"
	EntityStreet Entity = "street"
	EntityUnit   Entity = "unit"
)

// IncidentStatus optionally narrows an incident drill-down.
type IncidentStatus string

const (
	StatusAny    IncidentStatus = ""
	StatusOpen   IncidentStatus = "Open"
	StatusClosed IncidentStatus = "Closed"
)

// Context is the tagged union. Only the fields of the active variant are
// meaningful.
type Context struct {
	Kind    Kind
	Entity  Entity
	Status  IncidentStatus
	Filters filters.FilterSet
}

// PenaltyReport builds the drill-down context for the penalty KPI card.
func PenaltyReport(scope filters.FilterSet) Context {
	return Context{Kind: KindPenaltyReport, Filters: scope.Clone()}
}

// MasterList builds the drill-down context for a static entity count card.
func MasterList(entity Entity) Context {
	return Context{Kind: KindMasterList, Entity: entity}
}

// IncidentList builds the drill-down context for an incident count card.
func IncidentList(status IncidentStatus, scope filters.FilterSet) Context {
	return Context{Kind: KindIncidentList, Status: status, Filters: scope.Clone()}
}

// URL renders the context as the destination link of its KPI card.
func (c Context) URL() string {
	switch c.Kind {
	case KindPenaltyReport:
		query := c.Filters.Encode()
		if len(query) == 0 {
			return "/report"
		}
		return "/report?" + query.Encode()
	case KindMasterList:
		return "/master/" + string(c.Entity)
	case KindIncidentList:
		query := c.Filters.Encode()
		if c.Status != StatusAny {
			query.Set("status_filter", string(c.Status))
		}
		if len(query) == 0 {
			return "/master/incidents"
		}
		return "/master/incidents?" + query.Encode()
	}
	return "/"
}

// ParseIncidentStatus reads the status discriminator off a drill-down URL.
func ParseIncidentStatus(values url.Values) IncidentStatus {
	switch values.Get("status_filter") {
	case string(StatusOpen):
		return StatusOpen
	case string(StatusClosed):
		return StatusClosed
	}
	return StatusAny
}
