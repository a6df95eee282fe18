package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/sla-console/sla-console/internal/filterbar"
	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/shared"
	"github.com/sla-console/sla-console/internal/slaapi"
	"github.com/sla-console/sla-console/internal/view"
)

const defaultRange = 30 * 24 * time.Hour

// Options is the filter bar dependency of the handler.
type Options interface {
	Options(ctx context.Context, token string, scope filters.FilterSet) (slaapi.MasterFilters, error)
}

// Auditor records console actions. The audit trail satisfies it.
type Auditor interface {
	Record(ctx context.Context, actor, action string, meta map[string]any)
}

// PageData feeds the report template.
type PageData struct {
	Scope         filters.FilterSet
	DateFrom      string
	DateTo        string
	Dropdowns     []view.Dropdown
	Columns       []view.Column
	Rows          []RowVM
	Sort          view.SortSpec
	SortURLs      map[string]string
	Pagination    shared.Pagination
	PrevURL       string
	NextURL       string
	SubCategories []slaapi.Option
	QuickRanges   []QuickRangeVM
	ReturnQuery   string
	Error         string
}

// QuickRangeVM is one quick date-range shortcut link.
type QuickRangeVM struct {
	Label string
	Href  string
}

type waiveForm struct {
	IncidentID    int64 `validate:"required,gt=0"`
	SubCategoryID int64 `validate:"required,gt=0"`
}

// Handler wires HTTP endpoints for the penalty report.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	options   Options
	templates *view.Engine
	csrf      *shared.CSRFManager
	audit     Auditor
	validator *validator.Validate
	onAuthErr func(http.ResponseWriter, *http.Request)
	now       func() time.Time
}

// NewHandler constructs the report handler.
func NewHandler(logger *slog.Logger, service *Service, options Options, templates *view.Engine, csrf *shared.CSRFManager, audit Auditor, onAuthErr func(http.ResponseWriter, *http.Request)) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		options:   options,
		templates: templates,
		csrf:      csrf,
		audit:     audit,
		validator: validator.New(),
		onAuthErr: onAuthErr,
		now:       time.Now,
	}
}

// MountRoutes registers report routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/report", h.show)
	r.Post("/report/waive", h.handleWaive)
	r.Post("/report/refresh", h.handleRefresh)
	r.Get("/report/export/csv", h.exportCSV)
	r.Get("/report/export/pdf", h.exportPDF)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token := sess.Token()

	query := r.URL.Query()
	scope := filters.Parse(query).WithDefaultRange(h.now(), defaultRange)
	sort := view.ParseSort(query, view.DefaultReportSort)
	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("per_page"))

	// Options load first: a stale bookmark or drill-down link can carry
	// streets or units whose parent is no longer selected, and those must
	// be cleared before the scope reaches the report endpoint.
	options, err := h.options.Options(r.Context(), token, scope)
	if err == nil {
		if cascaded := scope.Cascade(filterbar.Tree(scope, options)); !cascaded.Equal(scope) {
			scope = cascaded
			options, err = h.options.Options(r.Context(), token, scope)
		}
	}

	data := PageData{
		Scope:       scope,
		DateFrom:    scope.DateFrom.Format(time.RFC3339),
		DateTo:      scope.DateTo.Format(time.RFC3339),
		Columns:     reportColumns,
		Sort:        sort,
		ReturnQuery: sort.Query(scope.Encode()).Encode(),
		QuickRanges: h.quickRanges(scope),
	}

	if err != nil {
		h.failShow(w, r, data, err)
		return
	}

	var result Page
	var subCategories []slaapi.Option

	group, groupCtx := errgroup.WithContext(r.Context())
	group.Go(func() error {
		var err error
		result, err = h.service.Fetch(groupCtx, token, scope, page, perPage, sort)
		return err
	})
	group.Go(func() error {
		var err error
		subCategories, err = h.service.SubCategories(groupCtx, token)
		return err
	})

	if err := group.Wait(); err != nil {
		h.failShow(w, r, data, err)
		return
	}

	base := scope.Encode()
	data.Dropdowns = filterbar.Dropdowns(scope, options)
	data.Rows = buildRows(result.Rows)
	data.SortURLs = sortURLs("/report", base, sort)
	data.Pagination = result.Pagination
	data.SubCategories = subCategories
	if result.Pagination.HasPrev() {
		data.PrevURL = pageURL("/report", base, sort, result.Pagination.Page-1)
	}
	if result.Pagination.HasNext() {
		data.NextURL = pageURL("/report", base, sort, result.Pagination.Page+1)
	}
	h.render(w, r, data)
}

func (h *Handler) failShow(w http.ResponseWriter, r *http.Request, data PageData, err error) {
	if errors.Is(err, slaapi.ErrUnauthorized) {
		h.onAuthErr(w, r)
		return
	}
	h.logger.Error("load report", slog.Any("error", err))
	data.Error = displayError(err)
	h.render(w, r, data)
}

func (h *Handler) handleWaive(w http.ResponseWriter, r *http.Request) {
	sess, scope, ok := h.beginAction(w, r)
	if !ok {
		return
	}

	incidentID, _ := strconv.ParseInt(r.PostFormValue("incident_log_prk"), 10, 64)
	subCategoryID, _ := strconv.ParseInt(r.PostFormValue("subcategory_id"), 10, 64)
	form := waiveForm{IncidentID: incidentID, SubCategoryID: subCategoryID}
	if err := h.validator.Struct(form); err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Select a row and a waive reason first."})
		h.redirectBack(w, r)
		return
	}

	err := h.service.Waive(r.Context(), sess.Token(), scope, form.IncidentID, form.SubCategoryID)
	switch {
	case errors.Is(err, slaapi.ErrUnauthorized):
		h.onAuthErr(w, r)
		return
	case err != nil:
		h.logger.Error("waive penalty", slog.Int64("incident", form.IncidentID), slog.Any("error", err))
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: displayError(err)})
	default:
		h.audit.Record(r.Context(), sess.Username(), "waive_penalty", map[string]any{
			"incident_log_prk": form.IncidentID,
			"subcategory_id":   form.SubCategoryID,
		})
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Penalty waived. Amounts were recalculated."})
	}
	h.redirectBack(w, r)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, scope, ok := h.beginAction(w, r)
	if !ok {
		return
	}

	err := h.service.Refresh(r.Context(), sess.Token(), scope)
	switch {
	case errors.Is(err, slaapi.ErrUnauthorized):
		h.onAuthErr(w, r)
		return
	case err != nil:
		h.logger.Error("refresh cache", slog.Any("error", err))
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: displayError(err)})
	default:
		h.audit.Record(r.Context(), sess.Username(), "refresh_cache", map[string]any{
			"date_from": scope.DateFrom,
			"date_to":   scope.DateTo,
		})
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Report cache refreshed."})
	}
	h.redirectBack(w, r)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", h.service.ExportCSV)
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "pdf", h.service.ExportPDF)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, format string, fetch func(context.Context, string, filters.FilterSet) (*Export, error)) {
	sess := shared.SessionFromContext(r.Context())
	scope := filters.Parse(r.URL.Query()).WithDefaultRange(h.now(), defaultRange)

	result, err := fetch(r.Context(), sess.Token(), scope)
	if err != nil {
		if errors.Is(err, slaapi.ErrUnauthorized) {
			h.onAuthErr(w, r)
			return
		}
		h.logger.Error("export report", slog.String("format", format), slog.Any("error", err))
		http.Error(w, displayError(err), http.StatusBadGateway)
		return
	}

	h.audit.Record(r.Context(), sess.Username(), "download_report", map[string]any{"format": format})
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	_, _ = w.Write(result.Data)
}

// beginAction parses the mutation form. CSRF is already verified by the
// shared middleware stack. The filter scope rides along in the form so
// the mutation applies to what the user is looking at.
func (h *Handler) beginAction(w http.ResponseWriter, r *http.Request) (*shared.Session, filters.FilterSet, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return nil, filters.FilterSet{}, false
	}
	sess := shared.SessionFromContext(r.Context())
	scope := filters.Parse(r.PostForm).WithDefaultRange(h.now(), defaultRange)
	return sess, scope, true
}

// redirectBack returns to the report view the action was taken from. Only
// the query string travels in the form, so the target stays on-site.
func (h *Handler) redirectBack(w http.ResponseWriter, r *http.Request) {
	target := "/report"
	if q := r.PostFormValue("return"); q != "" {
		target += "?" + q
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) quickRanges(scope filters.FilterSet) []QuickRangeVM {
	out := make([]QuickRangeVM, 0, 3)
	for _, name := range []string{"24h", "7d", "30d"} {
		window, ok := filters.QuickRangeWindow(name)
		if !ok {
			continue
		}
		ranged := scope.WithQuickRange(h.now(), window)
		out = append(out, QuickRangeVM{Label: quickLabel(name), Href: "/report?" + ranged.Encode().Encode()})
	}
	return out
}

func quickLabel(name string) string {
	switch name {
	case "24h":
		return "Last 24 hours"
	case "7d":
		return "Last 7 days"
	default:
		return "Last 30 days"
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
	return "The request could not be completed."
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data PageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "SLA Penalty Report",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Theme:       sess.Theme(),
		Username:    sess.Username(),
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/report.html", viewData); err != nil {
		h.logger.Error("render report", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
