package masterdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/navigation"
	"github.com/sla-console/sla-console/internal/shared"
	"github.com/sla-console/sla-console/internal/slaapi"
	"github.com/sla-console/sla-console/internal/view"
)

// EntityPageData feeds the one-shot entity listing template.
type EntityPageData struct {
	Entity     navigation.Entity
	Title      string
	Rows       []slaapi.Option
	TotalCount int
	Error      string
}

// IncidentRowVM is one incident row prepared for the template.
type IncidentRowVM struct {
	ID      int64
	At      string
	Message string
	Status  string
	Zone    string
	Street  string
	Unit    string
}

// IncidentPageData feeds the incident listing template.
type IncidentPageData struct {
	Status     navigation.IncidentStatus
	Scope      filters.FilterSet
	Rows       []IncidentRowVM
	TotalCount int
	// MoreURL is empty once every matching incident is on the page.
	MoreURL string
	Error   string
}

// Handler wires HTTP endpoints for the master data listings.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	onAuthErr func(http.ResponseWriter, *http.Request)
}

// NewHandler constructs the master data handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, onAuthErr func(http.ResponseWriter, *http.Request)) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		onAuthErr: onAuthErr,
	}
}

// MountRoutes registers master data routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/master/incidents", h.showIncidents)
	r.Get("/master/{entity}", h.showEntities)
}

func (h *Handler) showEntities(w http.ResponseWriter, r *http.Request) {
	entity := navigation.Entity(chi.URLParam(r, "entity"))
	title, ok := entityTitle(entity)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	data := EntityPageData{Entity: entity, Title: title}

	page, err := h.service.Entities(r.Context(), sess.Token(), entity)
	if err != nil {
		if errors.Is(err, slaapi.ErrUnauthorized) {
			h.onAuthErr(w, r)
			return
		}
		h.logger.Error("load master data", slog.String("entity", string(entity)), slog.Any("error", err))
		data.Error = displayError(err)
		h.render(w, r, "pages/masterdata.html", title, data)
		return
	}

	data.Rows = page.Rows
	data.TotalCount = page.TotalCount
	h.render(w, r, "pages/masterdata.html", title, data)
}

func (h *Handler) showIncidents(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	query := r.URL.Query()
	scope := filters.Parse(query)
	status := navigation.ParseIncidentStatus(query)
	limit, _ := strconv.Atoi(query.Get("limit"))

	data := IncidentPageData{Status: status, Scope: scope}

	page, err := h.service.Incidents(r.Context(), sess.Token(), scope, status, limit)
	if err != nil {
		if errors.Is(err, slaapi.ErrUnauthorized) {
			h.onAuthErr(w, r)
			return
		}
		h.logger.Error("load incidents", slog.Any("error", err))
		data.Error = displayError(err)
		h.render(w, r, "pages/incidents.html", "Incidents", data)
		return
	}

	data.Rows = buildIncidentRows(page.Rows)
	data.TotalCount = page.TotalCount
	if len(page.Rows) < page.TotalCount {
		data.MoreURL = moreURL(scope, status, len(page.Rows)+incidentBatch)
	}
	h.render(w, r, "pages/incidents.html", "Incidents", data)
}

func buildIncidentRows(rows []slaapi.Incident) []IncidentRowVM {
	out := make([]IncidentRowVM, 0, len(rows))
	for _, row := range rows {
		out = append(out, IncidentRowVM{
			ID:      row.IncidentLogPRK,
			At:      view.FormatCell("inlDateTime_DTM", row.DateTime),
			Message: view.FormatCell("inlAlarmMessage_TXT", row.AlarmMessage),
			Status:  view.FormatCell("status", row.Status),
			Zone:    view.FormatCell("ZoneName", row.ZoneName),
			Street:  view.FormatCell("StreetName", row.StreetName),
			Unit:    view.FormatCell("UnitName", row.UnitName),
		})
	}
	return out
}

func moreURL(scope filters.FilterSet, status navigation.IncidentStatus, limit int) string {
	query := scope.Encode()
	if status != navigation.StatusAny {
		query.Set("status_filter", string(status))
	}
	query.Set("limit", strconv.Itoa(limit))
	return "/master/incidents?" + query.Encode()
}

func entityTitle(entity navigation.Entity) (string, bool) {
	switch entity {
	case navigation.EntityZone:
		return "Zones", true
	case navigation.EntityStreet:
		return "Streets", true
	case navigation.EntityUnit:
		return "Units", true
	default:
		return "", false
	}
}

func displayError(err error) string {
	var apiErr *slaapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, slaapi.ErrUnavailable) {
		return "The SLA API is not reachable right now. Please try again."
	}
	return "Failed to load the listing."
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Theme:       sess.Theme(),
		Username:    sess.Username(),
		Data:        data,
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render master data", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
