package web

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/countonsheep/internal/core"
	"github.com/JonMunkholm/countonsheep/internal/logging"
	"github.com/JonMunkholm/countonsheep/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and the other fields of an upload form.
const multipartOverhead = 1 << 20

// maxMemory is the in-memory part of multipart parsing; the rest spills to disk.
const maxMemory = 32 << 20

// handleIndex renders the scripts page from the session state.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	data := templates.IndexData{
		Units:       s.service.ListUnits(),
		Selected:    sess.Selected(),
		MaxFileSize: s.cfg.Upload.MaxFileSize.String(),
	}
	if msg, ok := sess.TakeFlash(); ok {
		data.Flash = &msg
	}
	if in, name := sess.Input(); in != nil {
		data.InputName = name
		data.Input = &templates.TablePreview{
			Title:     "Input: " + name,
			Table:     s.service.Preview(in),
			TotalRows: in.NumRows(),
		}
	}
	if res, ok := sess.Result(); ok {
		data.ResultName = res.Filename()
		data.Result = &templates.TablePreview{
			Title:     "Result: " + res.Unit,
			Table:     s.service.Preview(res.Table),
			TotalRows: res.Table.NumRows(),
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.Index(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleUpload loads the posted file as the session input.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	file, header, err := s.formFile(w, r)
	if err != nil {
		sess.ClearInput()
		s.flashError(r, sess, err)
		redirectHome(w, r)
		return
	}
	defer file.Close()

	if _, err := s.service.LoadInto(r.Context(), sess, header.Filename, file); err != nil {
		s.flashError(r, sess, err)
	}
	redirectHome(w, r)
}

// handleExecute runs the selected transform against the session input.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	unit := r.FormValue("transform")
	if _, err := s.service.RunSession(r.Context(), sess, unit); err != nil {
		s.flashError(r, sess, err)
	}
	redirectHome(w, r)
}

// handleDownload sends the session result as a CSV attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.service.Export(sessionFrom(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeAttachment(w, filename, data)
}

// formFile parses a multipart upload and returns its "file" part.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize.Bytes()+multipartOverhead)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, nil, core.ErrFileTooLarge
		}
		return nil, nil, errNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errNoFile
	}
	return file, header, nil
}

// flashError logs err and stores its user message for the next page render.
func (s *Server) flashError(r *http.Request, sess *core.Session, err error) {
	msg := core.MapError(err)
	logging.FromContext(r.Context()).Warn("request error",
		"path", r.URL.Path,
		"error", err.Error(),
		"code", msg.Code,
	)
	sess.SetFlash(msg)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// writeAttachment sends data as a downloadable CSV file.
func writeAttachment(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", core.CSVContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
