package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/liuji1031/visualize-architecture/pkg/cache"
	"github.com/liuji1031/visualize-architecture/pkg/config"
	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/pipeline"
	"github.com/liuji1031/visualize-architecture/pkg/render"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// inlineSource is the synthetic file name for configurations posted as
// request text rather than uploaded files.
const inlineSource = "inline.yaml"

// configRequest selects a configuration source: inline text, an upload, or
// a preset, plus pipeline options.
type configRequest struct {
	Text     string `json:"text,omitempty"`
	UploadID string `json:"upload_id,omitempty"`
	Preset   string `json:"preset,omitempty"`
	// Source is the file to start from within an upload or preset.
	// Defaults to the upload's main file.
	Source string `json:"source,omitempty"`

	Orientation string `json:"orientation,omitempty"`
	Refresh     bool   `json:"refresh,omitempty"`

	// Format selects the render output: dot, svg, svg-native, or png.
	Format string `json:"format,omitempty"`
}

type parseResponse struct {
	Graph     json.RawMessage `json:"graph"`
	Ranks     map[string]int  `json:"ranks"`
	GraphHash string          `json:"graph_hash"`
	Nodes     int             `json:"nodes"`
	Edges     int             `json:"edges"`
	Cached    bool            `json:"cached"`
}

// resolveSource turns a configRequest into a fetcher, a starting file, and
// a cache key scope.
func (s *Server) resolveSource(ctx context.Context, req *configRequest) (store.Fetcher, string, string, error) {
	switch {
	case req.Text != "":
		f := store.FetcherFunc(func(_ context.Context, path string) ([]byte, error) {
			if path == inlineSource {
				return []byte(req.Text), nil
			}
			return nil, store.ErrNotFound
		})
		return f, inlineSource, "", nil

	case req.UploadID != "":
		u, err := s.uploads.Get(req.UploadID)
		if err != nil {
			return nil, "", "", err
		}
		source := req.Source
		if source == "" {
			source = u.MainFile
		}
		if source == "" {
			return nil, "", "", apperrors.New(apperrors.ErrCodeInvalidInput,
				"upload %s has no main file; pass source explicitly", u.ID)
		}
		f, err := s.uploads.Fetcher(u.ID)
		if err != nil {
			return nil, "", "", err
		}
		return f, source, "upload:" + u.ID + ":", nil

	case req.Preset != "":
		if s.presets == nil {
			return nil, "", "", apperrors.New(apperrors.ErrCodePresetNotFound, "presets are disabled")
		}
		p, err := s.presets.Get(ctx, req.Preset)
		if err != nil {
			return nil, "", "", err
		}
		source := req.Source
		if source == "" {
			source = p.MainFile
		}
		return p.Fetcher(), source, "preset:" + p.Name + ":", nil

	default:
		return nil, "", "", apperrors.New(apperrors.ErrCodeInvalidInput,
			"request needs one of text, upload_id, or preset")
	}
}

func (s *Server) runnerFor(fetcher store.Fetcher, scope string) *pipeline.Runner {
	keyer := s.keyer
	if scope != "" {
		keyer = cache.NewScopedKeyer(keyer, scope)
	}
	return pipeline.NewRunner(fetcher, s.cache, keyer, s.logger)
}

func (s *Server) executePipeline(r *http.Request) (*pipeline.Result, error) {
	var req configRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	return s.execute(r.Context(), &req)
}

func (s *Server) execute(ctx context.Context, req *configRequest) (*pipeline.Result, error) {
	fetcher, source, scope, err := s.resolveSource(ctx, req)
	if err != nil {
		return nil, err
	}
	runner := s.runnerFor(fetcher, scope)
	opts := pipeline.Options{
		Source:      source,
		Orientation: req.Orientation,
		Refresh:     req.Refresh,
		NodeWidth:   s.settings.Layout.NodeWidth,
		NodeHeight:  s.settings.Layout.NodeHeight,
		RankGap:     s.settings.Layout.RankGap,
		NodeGap:     s.settings.Layout.NodeGap,
		Logger:      s.logger,
	}
	if opts.Orientation == "" {
		opts.Orientation = s.settings.Layout.Orientation
	}
	return runner.Execute(ctx, opts)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	res, err := s.executePipeline(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	graphJSON, err := json.Marshal(res.Graph)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{
		Graph:     graphJSON,
		Ranks:     res.Ranks,
		GraphHash: res.GraphHash,
		Nodes:     res.Stats.NodeCount,
		Edges:     res.Stats.EdgeCount,
		Cached:    res.CacheInfo.GraphHit && res.CacheInfo.LayoutHit,
	})
}

func (s *Server) handleCheckReferences(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	fetcher, source, _, err := s.resolveSource(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	found, missing, err := config.FindReferences(r.Context(), fetcher, source)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found":   orEmpty(found),
		"missing": orEmpty(missing),
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.execute(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	orientation := req.Orientation
	if orientation == "" {
		orientation = s.settings.Layout.Orientation
	}
	dot := render.ToDOT(res.Graph, render.DOTOptions{Orientation: orientation})

	switch req.Format {
	case "", "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(dot))
	case "svg":
		svg, err := render.RenderSVG(r.Context(), dot)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	case "svg-native":
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(render.SVG(res.Graph, render.SVGOptions{Orientation: orientation}))
	case "png":
		png, err := render.RenderPNG(r.Context(), dot)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	default:
		s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput,
			"invalid format: %q (must be dot, svg, svg-native, or png)", req.Format))
	}
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.settings.Server.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "missing file field"))
		return
	}
	defer file.Close()

	u, err := s.uploads.CreateFromFile(header.Filename, file)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("stored upload", "id", u.ID, "file", u.MainFile)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleUploadFolder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.settings.Server.MaxUploadBytes)
	file, _, err := r.FormFile("archive")
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "missing archive field"))
		return
	}
	defer file.Close()

	// zip.NewReader needs random access; buffer the archive.
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "read archive"))
		return
	}
	u, err := s.uploads.CreateFromZip(bytes.NewReader(data), int64(len(data)), r.FormValue("main_file"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("stored folder upload", "id", u.ID, "files", len(u.Files), "main", u.MainFile)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleReleaseUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.uploads.Release(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFetchURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL  string `json:"url"`
		Name string `json:"name,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid url %q", req.URL))
		return
	}

	data, err := store.NewHTTP(nil).Fetch(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	name := req.Name
	if name == "" {
		name = "model.yaml"
	}
	u, err := s.uploads.CreateFromFile(name, bytes.NewReader(data))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("fetched remote config", "id", u.ID, "url", req.URL)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	if s.presets == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	presets, err := s.presets.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presets)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	if s.presets == nil {
		s.writeError(w, apperrors.New(apperrors.ErrCodePresetNotFound, "presets are disabled"))
		return
	}
	p, err := s.presets.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Debug("request rejected", "err", err)
	}
	code := apperrors.GetCode(err)
	if code == "" {
		var nfe *apperrors.NotFoundError
		if errors.As(err, &nfe) {
			code = nfe.Code()
		} else {
			code = apperrors.ErrCodeInternal
		}
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    string(code),
			"message": apperrors.UserMessage(err),
		},
	})
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
