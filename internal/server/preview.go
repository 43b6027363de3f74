package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediadesk/internal/metrics"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/sanitize"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templateFiles embed.FS

const historyLimit = 50

// DocumentSource lists legal documents of one kind.
type DocumentSource interface {
	List(ctx context.Context) ([]models.LegalDocument, error)
	Get(ctx context.Context, id string) (models.LegalDocument, error)
}

// PlanSource lists subscription plans.
type PlanSource interface {
	List(ctx context.Context) ([]models.SubscriptionPlan, error)
}

// HistorySource reads the upload journal.
type HistorySource interface {
	List(criteria map[string]any) ([]*models.BatchRecord, error)
	Get(id string) (*models.BatchRecord, error)
}

// Sources are the data behind the preview pages. A nil source hides its pages.
type Sources struct {
	Terms       DocumentSource
	Disclaimers DocumentSource
	Plans       PlanSource
	History     HistorySource
}

// PreviewHandler renders read-only HTML previews of admin content. Operator-authored markup only reaches a page
// through [sanitize.Trusted].
type PreviewHandler struct {
	sources Sources
	logger  *log.Logger
	pages   map[string]*template.Template
	mux     *http.ServeMux
}

// pageData is handed to every template.
type pageData struct {
	Title string
	Data  any
}

type documentsPage struct {
	Kind   string
	Path   string
	Docs   []models.LegalDocument
	Active *models.LegalDocument
}

type documentPage struct {
	Path string
	Doc  models.LegalDocument
}

type sanitizePage struct {
	Input     string
	Output    string
	URL       string
	SafeURL   string
	Submitted bool
}

type errorPage struct {
	Status  int
	Message string
}

func NewPreviewHandler(sources Sources, logger *log.Logger) *PreviewHandler {
	if logger == nil {
		logger = log.Default()
	}
	h := &PreviewHandler{sources: sources, logger: logger, pages: parsePages(), mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /{$}", h.index)
	h.mux.HandleFunc("GET /terms", h.documents(models.DocumentTerms))
	h.mux.HandleFunc("GET /terms/{id}", h.document(models.DocumentTerms))
	h.mux.HandleFunc("GET /disclaimer", h.documents(models.DocumentDisclaimer))
	h.mux.HandleFunc("GET /disclaimer/{id}", h.document(models.DocumentDisclaimer))
	h.mux.HandleFunc("GET /plans", h.plans)
	h.mux.HandleFunc("GET /uploads", h.uploads)
	h.mux.HandleFunc("GET /uploads/{id}", h.upload)
	h.mux.HandleFunc("GET /sanitize", h.sanitizeForm)
	h.mux.HandleFunc("POST /sanitize", h.sanitizeForm)
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *PreviewHandler) Routes() []string {
	return []string{"/{$}", "/terms", "/terms/{id}", "/disclaimer", "/disclaimer/{id}", "/plans", "/uploads", "/uploads/{id}", "/sanitize"}
}

func (h *PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// NewPreviewRouter assembles the preview pages, /metrics and /healthz behind the standard middleware.
func NewPreviewRouter(sources Sources, logger *log.Logger) *BasicRouter {
	if logger == nil {
		logger = log.Default()
	}
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger), SecureHeaders)

	router.Handler(NewPreviewHandler(sources, logger))
	router.Handle(http.MethodGet, "/metrics", promhttp.Handler())
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	}))
	return router
}

func (h *PreviewHandler) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index", pageData{Title: "Overview", Data: h.sources})
}

func (h *PreviewHandler) documents(kind models.DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, path := h.documentSource(kind)
		if src == nil {
			h.fail(w, http.StatusNotFound, "Documents are not configured")
			return
		}

		docs, err := src.List(r.Context())
		if err != nil {
			h.sourceError(w, err)
			return
		}

		page := documentsPage{Kind: string(kind), Path: path, Docs: docs}
		if active, ok := models.ActiveDocument(docs); ok {
			page.Active = &active
		}
		h.render(w, "documents", pageData{Title: documentTitle(kind), Data: page})
	}
}

func (h *PreviewHandler) document(kind models.DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, path := h.documentSource(kind)
		if src == nil {
			h.fail(w, http.StatusNotFound, "Documents are not configured")
			return
		}

		doc, err := src.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			h.sourceError(w, err)
			return
		}
		h.render(w, "document", pageData{Title: doc.SafeTitle(), Data: documentPage{Path: path, Doc: doc}})
	}
}

func (h *PreviewHandler) plans(w http.ResponseWriter, r *http.Request) {
	if h.sources.Plans == nil {
		h.fail(w, http.StatusNotFound, "Plans are not configured")
		return
	}

	plans, err := h.sources.Plans.List(r.Context())
	if err != nil {
		h.sourceError(w, err)
		return
	}
	h.render(w, "plans", pageData{Title: "Subscription plans", Data: plans})
}

func (h *PreviewHandler) uploads(w http.ResponseWriter, r *http.Request) {
	if h.sources.History == nil {
		h.fail(w, http.StatusNotFound, "Upload journal is not configured")
		return
	}

	records, err := h.sources.History.List(map[string]any{"limit": historyLimit})
	if err != nil {
		h.sourceError(w, err)
		return
	}
	h.render(w, "uploads", pageData{Title: "Uploads", Data: records})
}

func (h *PreviewHandler) upload(w http.ResponseWriter, r *http.Request) {
	if h.sources.History == nil {
		h.fail(w, http.StatusNotFound, "Upload journal is not configured")
		return
	}

	record, err := h.sources.History.Get(r.PathValue("id"))
	if err != nil {
		h.sourceError(w, err)
		return
	}
	h.render(w, "upload", pageData{Title: "Batch " + record.ID(), Data: record})
}

// sanitizeForm lets an operator paste markup or a URL and see exactly what the gate keeps.
func (h *PreviewHandler) sanitizeForm(w http.ResponseWriter, r *http.Request) {
	var page sanitizePage
	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := r.ParseForm(); err != nil {
			h.fail(w, http.StatusBadRequest, "Invalid form")
			return
		}
		page.Submitted = true
		page.Input = r.PostFormValue("html")
		page.Output = sanitize.HTML(page.Input)
		page.URL = r.PostFormValue("url")
		page.SafeURL = sanitize.URL(page.URL)
	}
	h.render(w, "sanitize", pageData{Title: "Sanitizer", Data: page})
}

func (h *PreviewHandler) documentSource(kind models.DocumentType) (DocumentSource, string) {
	if kind == models.DocumentDisclaimer {
		return h.sources.Disclaimers, "/disclaimer"
	}
	return h.sources.Terms, "/terms"
}

// render executes a page into a buffer first so a template error never produces a half-written 200.
func (h *PreviewHandler) render(w http.ResponseWriter, page string, data pageData) {
	h.renderStatus(w, http.StatusOK, page, data)
	if page != "error" {
		metrics.SanitizedRenders.WithLabelValues(page).Inc()
	}
}

func (h *PreviewHandler) renderStatus(w http.ResponseWriter, status int, page string, data pageData) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("failed to render page", "page", page, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *PreviewHandler) fail(w http.ResponseWriter, status int, message string) {
	h.renderStatus(w, status, "error", pageData{Title: http.StatusText(status), Data: errorPage{Status: status, Message: message}})
}

// sourceError maps a source error to a status: missing records are 404, upstream API failures 502.
func (h *PreviewHandler) sourceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrDocumentNotFound), errors.Is(err, shared.ErrPlanNotFound), errors.Is(err, shared.ErrBatchNotFound):
		h.fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrMissingCredentials):
		h.fail(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Error("preview source failed", "error", err)
		h.fail(w, http.StatusBadGateway, err.Error())
	}
}

func documentTitle(kind models.DocumentType) string {
	if kind == models.DocumentDisclaimer {
		return "Disclaimers"
	}
	return "Terms and conditions"
}

var templateFuncs = template.FuncMap{
	"trusted": sanitize.Trusted,
	"text":    sanitize.Text,
	"safeURL": sanitize.URL,
	"bytes":   shared.FormatBytes,
	"when": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04")
	},
}

func parsePages() map[string]*template.Template {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"index", "documents", "document", "plans", "uploads", "upload", "sanitize", "error"} {
		pages[name] = template.Must(template.New(name).Funcs(templateFuncs).ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html"))
	}
	return pages
}
