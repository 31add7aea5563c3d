package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/audit"
	"github.com/ziadkadry99/ai-runner/internal/auth"
	"github.com/ziadkadry99/ai-runner/internal/documents"
	"github.com/ziadkadry99/ai-runner/internal/pipeline"
)

const maxFormMemory = 32 << 20

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	f, err := bind(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := f.require("doc"); err != nil {
		writeError(w, err)
		return
	}

	summary, err := s.dispatcher.Summarize(r.Context(), f["doc"], f["src_lang"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	f, err := bind(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := f.require("doc", "src_lang", "tgt_lang"); err != nil {
		writeError(w, err)
		return
	}

	translation, err := s.dispatcher.Translate(r.Context(), f["doc"], f["src_lang"], f["tgt_lang"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"translation": translation})
}

func (s *Server) handleContextPredict(w http.ResponseWriter, r *http.Request) {
	f, err := bind(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := f.require("context", "query"); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.dispatcher.ContextPredict(r.Context(), f["context"], f["query"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"result": result})
}

func (s *Server) handleRagPredict(w http.ResponseWriter, r *http.Request) {
	f, err := bind(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := f.require("db", "query"); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.dispatcher.RagPredict(r.Context(), f["db"], f["query"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"result": result})
}

func (s *Server) handleListBases(w http.ResponseWriter, r *http.Request) {
	bases, err := s.dispatcher.Registry().List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documentary_bases": bases})
}

func (s *Server) handleAddReference(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("upload exceeds the %d byte limit", s.cfg.MaxUploadBytes),
			})
			return
		}
		writeError(w, fmt.Errorf("%w: expected a multipart form with a file field: %v", apperr.ErrValidation, err))
		return
	}

	f := fields{}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			f[k] = v[0]
		}
	}
	if err := f.require("db", "reference"); err != nil {
		writeError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: file is required", apperr.ErrValidation))
		return
	}
	defer file.Close()

	kindHint := f["kind"]
	if kindHint == "" {
		kindHint = header.Filename
	}
	kind, err := documents.ParseKind(kindHint)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: reading upload: %v", apperr.ErrValidation, err))
		return
	}

	ref, err := s.dispatcher.Registry().AddReference(r.Context(), f["db"], f["reference"], kind, data)
	if err != nil {
		writeError(w, err)
		return
	}
	s.record(r, audit.Entry{
		Action:    audit.ActionReferenceAdded,
		Base:      ref.Base,
		Reference: ref.Name,
		Summary:   fmt.Sprintf("added %s (%s, %d chunks)", ref.Name, ref.FileKind, ref.Chunks),
		Detail:    fmt.Sprintf("%s, %d bytes", header.Filename, ref.SizeBytes),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Reference %q added to documentary base %q", ref.Name, ref.Base),
		"chunks":  ref.Chunks,
	})
}

func (s *Server) handleDeleteReference(w http.ResponseWriter, r *http.Request) {
	f, err := bind(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := f.require("db", "reference"); err != nil {
		writeError(w, err)
		return
	}

	if err := s.dispatcher.Registry().DeleteReference(r.Context(), f["db"], f["reference"]); err != nil {
		writeError(w, err)
		return
	}
	s.record(r, audit.Entry{
		Action:    audit.ActionReferenceDeleted,
		Base:      f["db"],
		Reference: f["reference"],
		Summary:   "deleted " + f["reference"],
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Reference %q deleted from documentary base %q", f["reference"], f["db"]),
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": pipeline.LanguageCodes(),
		"routes":    s.dispatcher.Pairs(),
	})
}

// record appends entry to the audit trail, attributed to the caller's token
// subject. A failed write is logged and does not fail the request.
func (s *Server) record(r *http.Request, entry audit.Entry) {
	if s.trail == nil {
		return
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		entry.ActorID = claims.Subject
	}
	if err := s.trail.Log(r.Context(), entry); err != nil {
		log.Printf("server: audit %s %s/%s: %v", entry.Action, entry.Base, entry.Reference, err)
	}
}

// fields holds the string parameters of a request.
type fields map[string]string

func (f fields) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if strings.TrimSpace(f[n]) == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", apperr.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// bind reads request parameters from a JSON object, a multipart or
// url-encoded form, and the query string, in that order of precedence.
func bind(r *http.Request) (fields, error) {
	f := fields{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: invalid JSON body: %v", apperr.ErrValidation, err)
		}
		for k, v := range body {
			switch v := v.(type) {
			case string:
				f[k] = v
			case nil:
			default:
				f[k] = fmt.Sprint(v)
			}
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, fmt.Errorf("%w: invalid form: %v", apperr.ErrValidation, err)
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				f[k] = v[0]
			}
		}
	case "application/x-www-form-urlencoded":
		// ParseForm ignores the body of DELETE requests.
		raw, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxFormMemory))
		if err != nil {
			return nil, fmt.Errorf("%w: reading form: %v", apperr.ErrValidation, err)
		}
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid form: %v", apperr.ErrValidation, err)
		}
		for k, v := range values {
			if len(v) > 0 {
				f[k] = v[0]
			}
		}
	}

	for k, v := range r.URL.Query() {
		if _, ok := f[k]; !ok && len(v) > 0 {
			f[k] = v[0]
		}
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("server: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
