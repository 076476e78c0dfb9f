package httpapp

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/downtil/internal/app"
	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/extractor"
	"github.com/cesargomez89/downtil/internal/http/dto"
	"github.com/cesargomez89/downtil/internal/platform"
	"github.com/cesargomez89/downtil/internal/storage"
)

func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.RenderPage(w, "index.html", pageData(r, "DownTil"))
		return
	}

	if errs := dto.ValidateSourceURL("q", q, ""); len(errs) > 0 {
		h.redirectHome(w, r, "home: "+dto.ToResponse(errs))
		return
	}
	http.Redirect(w, r, "/"+platform.Detect(q)+"?url="+url.QueryEscape(q), http.StatusFound)
}

func (h *Handler) DetailByURL(plat string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("url"))
		if errs := dto.ValidateSourceURL("url", raw, plat); len(errs) > 0 {
			h.redirectHome(w, r, plat+": "+dto.ToResponse(errs))
			return
		}

		meta, err := h.Media.Probe(r.Context(), raw)
		if err != nil {
			h.redirectHome(w, r, fmt.Sprintf("%s: extractor failed for url=%q: %v", plat, raw, err))
			return
		}
		h.renderDetail(w, r, plat, meta)
	}
}

func (h *Handler) DetailByID(plat string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if errs := dto.ValidateSourceID("id", id); len(errs) > 0 {
			h.redirectHome(w, r, plat+": "+dto.ToResponse(errs))
			return
		}

		meta, _, err := h.Media.ProbeID(r.Context(), plat, id)
		if err != nil {
			h.redirectHome(w, r, fmt.Sprintf("%s: invalid id=%q: %v", plat, id, err))
			return
		}
		h.renderDetail(w, r, plat, meta)
	}
}

func (h *Handler) SoundCloudDetail(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "id")
	track := chi.URLParam(r, "track")
	errs := append(dto.ValidateSourceID("user", user), dto.ValidateSourceID("track", track)...)
	if len(errs) > 0 {
		h.redirectHome(w, r, "sc: "+dto.ToResponse(errs))
		return
	}

	src := platform.SoundCloudTrackURL(user, track)
	meta, err := h.Media.Probe(r.Context(), src)
	if err != nil {
		h.redirectHome(w, r, fmt.Sprintf("sc: extractor failed for url=%q: %v", src, err))
		return
	}
	h.renderDetail(w, r, platform.SoundCloud, meta)
}

func (h *Handler) renderDetail(w http.ResponseWriter, r *http.Request, plat string, meta *domain.Metadata) {
	data := pageData(r, meta.DisplayTitle("Untitled")+" - "+meta.DisplayCreator())
	data["Meta"] = meta
	data["Buttons"] = platform.Buttons(plat, meta)
	h.RenderPage(w, "detail.html", data)
}

func (h *Handler) StartJob(plat string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		v, ok := platform.VariantFor(plat, chi.URLParam(r, "variant"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		if errs := dto.ValidateSourceID("id", id); len(errs) > 0 {
			h.redirectHome(w, r, plat+": "+dto.ToResponse(errs))
			return
		}

		var res app.StartResult
		meta, src, err := h.Media.ProbeID(r.Context(), plat, id)
		if err != nil {
			res = h.Jobs.Fail(v, platform.Name(plat)+" - "+id, fmt.Errorf("probe failed: %w", err))
		} else {
			res = h.Jobs.Start(v, meta, src)
		}

		own := "0"
		if res.Owner {
			own = "1"
		}
		http.Redirect(w, r, "/job/"+res.JobID+"?own="+own, http.StatusFound)
	}
}

func (h *Handler) Thumbnail(plat string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if errs := dto.ValidateSourceID("id", id); len(errs) > 0 {
			h.redirectHome(w, r, plat+": "+dto.ToResponse(errs))
			return
		}

		meta, _, err := h.Media.ProbeID(r.Context(), plat, id)
		if err != nil {
			h.redirectHome(w, r, fmt.Sprintf("%s: invalid id=%q: %v", plat, id, err))
			return
		}

		att, err := h.Media.Thumbnail(r.Context(), plat, meta)
		if err != nil {
			if !errors.Is(err, extractor.ErrNoThumbnail) {
				h.Logger.Warn("Thumbnail fetch failed", "platform", plat, "id", id, "error", err)
			}
			http.NotFound(w, r)
			return
		}
		serveAttachment(w, att)
	}
}

func (h *Handler) Subtitles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if errs := dto.ValidateSourceID("id", id); len(errs) > 0 {
		h.redirectHome(w, r, "yt: "+dto.ToResponse(errs))
		return
	}

	meta, _, err := h.Media.ProbeID(r.Context(), platform.YouTube, id)
	if err != nil {
		h.redirectHome(w, r, fmt.Sprintf("yt: invalid id=%q: %v", id, err))
		return
	}

	att, err := h.Media.Subtitles(r.Context(), meta)
	if errors.Is(err, extractor.ErrNoSubtitles) {
		http.Error(w, "No subtitles", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Warn("Subtitle fetch failed", "id", id, "error", err)
		http.NotFound(w, r)
		return
	}
	serveAttachment(w, att)
}

func serveAttachment(w http.ResponseWriter, att *app.Attachment) {
	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(att.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(att.Data)))
	_, _ = w.Write(att.Data)
}

func (h *Handler) JobPage(w http.ResponseWriter, r *http.Request) {
	st, ok := h.Jobs.Status(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	data := pageData(r, "Processing…")
	data["Job"] = st.Job
	data["Status"] = dto.NewStatusResponse(&st.Job, st.QueuePosition)
	data["Owner"] = r.URL.Query().Get("own") == "1"
	h.RenderPage(w, "job.html", data)
}

func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := h.Jobs.Status(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "unknown job"})
		return
	}
	writeJSON(w, http.StatusOK, dto.NewStatusResponse(&st.Job, st.QueuePosition))
}

func (h *Handler) JobFile(w http.ResponseWriter, r *http.Request) {
	j, ok := h.Jobs.GetJob(chi.URLParam(r, "id"))
	if !ok || !j.Ready() {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(j.FilePath)
	if err != nil {
		h.Logger.Warn("Job file unavailable", "job_id", j.ID, "error", err)
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	name := j.DisplayName
	if name == "" {
		name = fallbackName(&j)
	}
	w.Header().Set("Content-Disposition", contentDisposition(name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// fallbackName derives a download name from "Platform - Title" job titles.
func fallbackName(j *domain.Job) string {
	title := j.Title
	if title == "" {
		title = "download"
	}
	if _, after, found := strings.Cut(title, " - "); found {
		title = after
	}
	ext := strings.TrimPrefix(filepath.Ext(j.FilePath), ".")
	if ext == "" {
		ext = "bin"
	}
	return storage.Sanitize(title, ext)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok", Stats: h.Jobs.GetStats()})
}
