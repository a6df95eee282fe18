package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sla-console/sla-console/internal/filterbar"
	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/navigation"
	"github.com/sla-console/sla-console/internal/shared"
	"github.com/sla-console/sla-console/internal/slaapi"
	"github.com/sla-console/sla-console/internal/view"
)

const loadTimeout = 35 * time.Second

// Card is one clickable KPI tile.
type Card struct {
	Label string
	Value string
	Href  string
}

// PageData feeds the dashboard template.
type PageData struct {
	Scope     filters.FilterSet
	DateFrom  string
	DateTo    string
	Dropdowns []view.Dropdown
	Cards     []Card
	Warning   string
	Error     string
}

// Options is the filter bar dependency of the handler.
type Options interface {
	Options(ctx context.Context, token string, scope filters.FilterSet) (slaapi.MasterFilters, error)
}

// KPIProvider is the service dependency of the handler.
type KPIProvider interface {
	KPIs(ctx context.Context, token string, scope filters.FilterSet) (slaapi.DashboardKPIs, error)
}

// Handler serves the dashboard page.
type Handler struct {
	logger    *slog.Logger
	service   KPIProvider
	options   Options
	templates *view.Engine
	csrf      *shared.CSRFManager
	onAuthErr func(http.ResponseWriter, *http.Request)
}

// NewHandler constructs the dashboard handler. onAuthErr is the shared
// forced-logout path invoked when the API rejects the session token.
func NewHandler(logger *slog.Logger, service KPIProvider, options Options, templates *view.Engine, csrf *shared.CSRFManager, onAuthErr func(http.ResponseWriter, *http.Request)) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		options:   options,
		templates: templates,
		csrf:      csrf,
		onAuthErr: onAuthErr,
	}
}

// MountRoutes registers dashboard routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token := sess.Token()
	scope := filters.Parse(r.URL.Query())

	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()

	// Options load first so selections orphaned by a changed parent are
	// cleared before the KPI fetch sees the scope.
	options, err := h.options.Options(ctx, token, scope)
	if err == nil {
		if cascaded := scope.Cascade(filterbar.Tree(scope, options)); !cascaded.Equal(scope) {
			scope = cascaded
			options, err = h.options.Options(ctx, token, scope)
		}
	}

	data := PageData{
		Scope:    scope,
		DateFrom: formValue(scope.DateFrom),
		DateTo:   formValue(scope.DateTo),
	}

	var kpis slaapi.DashboardKPIs
	if err == nil {
		kpis, err = h.service.KPIs(ctx, token, scope)
	}
	if err != nil {
		if errors.Is(err, slaapi.ErrUnauthorized) {
			h.onAuthErr(w, r)
			return
		}
		h.logger.Error("load dashboard", slog.Any("error", err))
		data.Error = displayError(err)
		h.render(w, r, data)
		return
	}

	data.Dropdowns = filterbar.Dropdowns(scope, options)
	data.Cards = buildCards(kpis, scope)
	data.Warning = partialWarning(kpis.ErrorDetails)
	h.render(w, r, data)
}

func buildCards(kpis slaapi.DashboardKPIs, scope filters.FilterSet) []Card {
	return []Card{
		{
			Label: "Total Zones",
			Value: strconv.Itoa(kpis.TotalZones),
			Href:  navigation.MasterList(navigation.EntityZone).URL(),
		},
		{
			Label: "Total Streets",
			Value: strconv.Itoa(kpis.TotalStreets),
			Href:  navigation.MasterList(navigation.EntityStreet).URL(),
		},
		{
			Label: "Total Units",
			Value: strconv.Itoa(kpis.TotalUnits),
			Href:  navigation.MasterList(navigation.EntityUnit).URL(),
		},
		{
			Label: "Open Incidents",
			Value: strconv.Itoa(kpis.TotalOpenIncidents),
			Href:  navigation.IncidentList(navigation.StatusOpen, scope).URL(),
		},
		{
			Label: "Closed Incidents",
			Value: strconv.Itoa(kpis.TotalClosedIncidents),
			Href:  navigation.IncidentList(navigation.StatusClosed, scope).URL(),
		},
		{
			Label: "SLA Penalty",
			Value: view.Currency(kpis.TotalPenalty),
			Href:  navigation.PenaltyReport(scope).URL(),
		},
	}
}

func partialWarning(details map[string]string) string {
	if len(details) == 0 {
		return ""
	}
	fields := make([]string, 0, len(details))
	for field := range details {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	msg := "Some KPIs could not be calculated: "
	for i, field := range fields {
		if i > 0 {
			msg += "; "
		}
		msg += field + ": " + details[field]
	}
	return msg
}

func displayError(err error) string {
	var apiErr *slaapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, slaapi.ErrUnavailable) {
		return "The SLA API is not reachable right now. Please try again."
	}
	return "Failed to load dashboard data."
}

func formValue(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data PageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "SLA Dashboard",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Theme:       sess.Theme(),
		Username:    sess.Username(),
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/dashboard.html", viewData); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
