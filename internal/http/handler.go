package httpapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/downtil/internal/app"
	"github.com/cesargomez89/downtil/internal/logger"
	"github.com/cesargomez89/downtil/internal/platform"
	"github.com/cesargomez89/downtil/web"
)

var pages = []string{"index.html", "detail.html", "job.html"}

type Handler struct {
	Jobs      *app.JobService
	Media     *app.MediaService
	Templates map[string]*template.Template
	Logger    *logger.Logger
}

func NewHandler(js *app.JobService, ms *app.MediaService, log *logger.Logger) (*Handler, error) {
	h := &Handler{
		Jobs:      js,
		Media:     ms,
		Templates: make(map[string]*template.Template, len(pages)),
		Logger:    log.WithComponent("http"),
	}
	if err := h.ParseTemplates(); err != nil {
		return nil, err
	}
	return h, nil
}

// ParseTemplates pairs every page with the shared layout once at startup.
func (h *Handler) ParseTemplates() error {
	for _, page := range pages {
		tmpl, err := template.ParseFS(web.Files, "templates/base.html", "templates/"+page)
		if err != nil {
			return fmt.Errorf("parse template %s: %w", page, err)
		}
		h.Templates[page] = tmpl
	}
	return nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HomePage)
	r.Get("/healthz", h.Health)
	r.Handle("/static/*", http.FileServer(http.FS(web.Files)))

	for _, p := range []string{platform.YouTube, platform.TikTok, platform.SoundCloud} {
		r.Get("/"+p, h.DetailByURL(p))
		r.Get("/"+p+"/{id}/start/{variant}", h.StartJob(p))
	}

	r.Get("/yt/{id}", h.DetailByID(platform.YouTube))
	r.Get("/yt/{id}/thumb", h.Thumbnail(platform.YouTube))
	r.Get("/yt/{id}/subs", h.Subtitles)

	r.Get("/tt/{id}", h.DetailByID(platform.TikTok))
	r.Get("/tt/{id}/thumb", h.Thumbnail(platform.TikTok))

	// the first segment is the SoundCloud user for permalinks and the
	// numeric track id for covers
	r.Get("/sc/{id}/{track}", h.SoundCloudDetail)
	r.Get("/sc/{id}/cover", h.Thumbnail(platform.SoundCloud))

	r.Get("/job/{id}", h.JobPage)
	r.Get("/job/{id}/status", h.JobStatus)
	r.Get("/job/{id}/file", h.JobFile)
}

func (h *Handler) RenderPage(w http.ResponseWriter, page string, data map[string]interface{}) {
	tmpl, ok := h.Templates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		h.Logger.Error("Failed to render page", "page", page, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func pageData(r *http.Request, title string) map[string]interface{} {
	return map[string]interface{}{
		"Title": title,
		"Query": r.URL.Query().Get("q"),
	}
}

// redirectHome is how input and probe errors surface to the browser.
func (h *Handler) redirectHome(w http.ResponseWriter, r *http.Request, reason string) {
	h.Logger.Warn("Redirecting home", "path", r.URL.Path, "reason", reason)
	http.Redirect(w, r, "/", http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
