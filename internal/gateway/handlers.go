package gateway

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"whiterabbit/internal/domain"
)

const (
	backendAudioPrefix = "/static/audio/"
	proxiedAudioPrefix = "/api/audio/"
	audioCacheControl  = "public, max-age=31536000, immutable"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, limit, err := searchParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()
	resp, err := s.upstream.Search(ctx, query, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	normalizeScores(resp.Results)
	writeJSON(w, http.StatusOK, resp)
}

// normalizeScores rescales scores to 0..1 relative to the best hit
func normalizeScores(results []domain.ResultItem) {
	var top float64
	for _, r := range results {
		if r.Score > top {
			top = r.Score
		}
	}
	if top <= 0 {
		return
	}
	for i := range results {
		results[i].Score /= top
	}
}

func (s *Server) handleListMysteries(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()
	list, err := s.upstream.ListMysteries(ctx, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetMystery(w http.ResponseWriter, r *http.Request) {
	id, err := mysteryID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()
	detail, err := s.upstream.GetMystery(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	depth, nodeLimit, err := graphParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()
	graph, err := s.upstream.Graph(ctx, depth, nodeLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	typ, err := nodeType(r.PathValue("type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()
	nodes, err := s.upstream.NodesByType(ctx, typ)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeTTS(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()
	res, err := s.upstream.GenerateTTS(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res.AudioURL = rewriteAudioURL(res.AudioURL)
	writeJSON(w, http.StatusOK, res)
}

// rewriteAudioURL points backend audio paths at the local proxy
func rewriteAudioURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.HasPrefix(u.Path, backendAudioPrefix) {
		return raw
	}
	return proxiedAudioPrefix + path.Base(u.Path)
}

func (s *Server) handleWarmup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstreamContext(r)
	defer cancel()
	out, err := s.upstream.WarmupTTS(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	filename, err := audioFilename(r.PathValue("filename"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()
	audio, err := s.upstream.OpenAudio(ctx, filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer audio.Close()

	h := w.Header()
	h.Set("Content-Type", audio.ContentType)
	h.Set("Cache-Control", audioCacheControl)
	if audio.ContentLength > 0 {
		h.Set("Content-Length", strconv.FormatInt(audio.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio.Body); err != nil && !errors.Is(err, ctx.Err()) {
		s.logger.Warn("audio stream interrupted", zap.String("file", filename), zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstreamContext(r)
	defer cancel()
	health, err := s.upstream.Health(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, health)
}
