package web

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/countonsheep/internal/catalog"
	"github.com/JonMunkholm/countonsheep/internal/core"
)

// maxCatalogBody bounds catalog write requests.
const maxCatalogBody = 64 << 10

// handleHealth reports liveness plus unit and run slot counts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"transforms": s.service.Units().Len(),
		"loaded_at":  s.service.Units().LoadedAt(),
		"runs":       s.service.RunStatus(),
	})
}

// handleListTransforms returns every discovered unit with its validity.
func (s *Server) handleListTransforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListUnits())
}

// handleRun is the stateless pipeline: upload, execute and download in
// one request. The session result slot is not involved.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	unit := r.FormValue("transform")
	ctx := WithRequestMetadata(r.Context(), r)

	in, err := s.service.Load(file)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	out, err := s.service.Run(ctx, unit, in)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	data, err := core.EncodeCSV(out)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeAttachment(w, core.ExportFilename(header.Filename, unit), data)
}

// explorerJSON is the API shape of an explorer entry.
type explorerJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// toolJSON is the API shape of a tool entry.
type toolJSON struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (s *Server) handleListExplorers(w http.ResponseWriter, r *http.Request) {
	entries, err := s.explorers.List(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	out := make([]explorerJSON, len(entries))
	for i, e := range entries {
		out[i] = explorerJSON{Name: e.Name, URL: e.Value}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutExplorer(w http.ResponseWriter, r *http.Request) {
	var req explorerJSON
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if err := s.explorers.Put(r.Context(), req.Name, req.URL); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	entries, err := s.tools.List(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	out := make([]toolJSON, len(entries))
	for i, e := range entries {
		out[i] = toolJSON{Name: e.Name, URL: e.Value.URL, Description: e.Value.Description}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutTool(w http.ResponseWriter, r *http.Request) {
	var req toolJSON
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	req.Description = strings.TrimSpace(req.Description)
	tool := catalog.Tool{URL: req.URL, Description: req.Description}
	if err := s.tools.Put(r.Context(), req.Name, tool); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// decodeBody decodes a JSON request body into v. Malformed bodies are
// reported as invalid catalog entries.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCatalogBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrInvalid, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON object", catalog.ErrInvalid)
	}
	return nil
}

// templateJSON is the API shape of a gallery file.
type templateJSON struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	SizeText string `json:"size_text"`
	Modified string `json:"modified"`
	URL      string `json:"url"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	files, err := s.gallery.List()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	out := make([]templateJSON, len(files))
	for i, f := range files {
		out[i] = templateJSON{
			Name:     f.Name,
			Size:     f.Size,
			SizeText: f.HumanSize(),
			Modified: f.ModTime.UTC().Format("2006-01-02T15:04:05Z"),
			URL:      "/api/templates/" + url.PathEscape(f.Name),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	fh, f, err := s.gallery.Open(name)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer fh.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	http.ServeContent(w, r, f.Name, f.ModTime, fh)
}
