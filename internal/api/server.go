// Package api also hosts the preview/validate/analyze HTTP surface itself,
// grounded on the teacher's internal/infrastructure/api/rest.Server: one
// *http.ServeMux built in routes(), a thin ServeHTTP that logs then
// delegates, and one handler method per route. The teacher fans its routes
// out across workflows/executions/nodes/edges; this surface fans out
// across the three preview package entry points plus the catalog and a
// websocket upgrade for incremental streaming.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/evaluator"
	"github.com/smilemakc/ta-engine/internal/ir"
	"github.com/smilemakc/ta-engine/internal/irtext"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/obslog"
	"github.com/smilemakc/ta-engine/internal/obsmetrics"
	"github.com/smilemakc/ta-engine/internal/preview"
	"github.com/smilemakc/ta-engine/internal/snapshotstore"
	"github.com/smilemakc/ta-engine/internal/stream"
)

// Server is the HTTP surface for preview/validate/analyze/catalog, plus a
// websocket upgrade endpoint for incremental session streaming.
type Server struct {
	mux      *http.ServeMux
	cat      *catalog.Catalog
	kernels  *kernel.Registry
	log      obslog.Logger
	metrics  *obsmetrics.Meter
	hub      *stream.Hub
	obs      *stream.Observer
	auth     Authenticator
	sessions *sessionManager
}

// NewServer builds the Server and registers its routes. auth may be
// *JWTAuth or *NoAuth; pass NewNoAuth() for local development, matching the
// teacher's own optional-auth-middleware pattern in middleware_auth.go.
// Incremental sessions created via /v1/sessions snapshot to an in-memory
// store by default; use SetSnapshotStore to durably persist them instead.
func NewServer(cat *catalog.Catalog, kernels *kernel.Registry, log obslog.Logger, metrics *obsmetrics.Meter, hub *stream.Hub, auth Authenticator) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		cat:      cat,
		kernels:  kernels,
		log:      log,
		metrics:  metrics,
		hub:      hub,
		obs:      stream.NewObserver(hub),
		auth:     auth,
		sessions: newSessionManager(nil),
	}
	s.routes()
	return s
}

// SetSnapshotStore swaps the session manager's snapshot backend, e.g. for a
// Postgres-backed snapshotstore.BunStore configured from DatabaseDSN. Must
// be called before serving traffic; it is not safe for concurrent use with
// in-flight session requests.
func (s *Server) SetSnapshotStore(store snapshotstore.Store) {
	s.sessions = newSessionManager(store)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /v1/catalog", s.handleCatalog)
	s.mux.Handle("POST /v1/preview", RequireAuth(s.auth, http.HandlerFunc(s.handlePreview)))
	s.mux.Handle("POST /v1/validate", RequireAuth(s.auth, http.HandlerFunc(s.handleValidate)))
	s.mux.Handle("POST /v1/analyze", RequireAuth(s.auth, http.HandlerFunc(s.handleAnalyze)))
	s.mux.Handle("POST /v1/analyze-yaml", RequireAuth(s.auth, http.HandlerFunc(s.handleAnalyzeYAML)))
	s.mux.Handle("GET /v1/stream", RequireAuth(s.auth, http.HandlerFunc(s.handleStream)))
	s.mux.Handle("POST /v1/sessions", RequireAuth(s.auth, http.HandlerFunc(s.handleCreateSession)))
	s.mux.Handle("POST /v1/sessions/{id}/step", RequireAuth(s.auth, http.HandlerFunc(s.handleStepSession)))
	s.mux.Handle("GET /v1/sessions/{id}/snapshot", RequireAuth(s.auth, http.HandlerFunc(s.handleSessionSnapshot)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.log.Raw().Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("duration", time.Since(start)).Msg("request handled")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cat.Export())
}

type previewRequest struct {
	Expression json.RawMessage `json:"expression"`
	Dataset    DatasetPayload  `json:"dataset"`
}

type seriesResponse struct {
	Timestamps []int64   `json:"timestamps"`
	Values     []float64 `json:"values,omitempty"`
	Bools      []bool    `json:"bools,omitempty"`
	IsBool     bool      `json:"is_bool"`
	Mask       []bool    `json:"mask"`
}

type previewResponse struct {
	Series map[string]seriesResponse `json:"series"`
	Trim   int                       `json:"trim"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	root, err := ir.FromJSON(req.Expression)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ds, err := BuildDataset(req.Dataset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	result, err := preview.Preview(root, ds, s.cat, s.kernels)
	s.metrics.RecordPlanCompiled(r.Context(), float64(time.Since(start).Milliseconds()))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	out := previewResponse{Series: make(map[string]seriesResponse, len(result.SeriesByOutput)), Trim: result.Trim}
	for name, col := range result.SeriesByOutput {
		out.Series[name] = columnToResponse(col)
	}
	writeJSON(w, http.StatusOK, out)
}

func columnToResponse(col *evaluator.Column) seriesResponse {
	n := col.Len()
	out := seriesResponse{
		Timestamps: make([]int64, n),
		Mask:       make([]bool, n),
	}
	var nums []float64
	var bools []bool
	for i := 0; i < n; i++ {
		v := col.At(i)
		if v.IsBool {
			out.IsBool = true
			bools = append(bools, v.Bool)
		} else {
			nums = append(nums, v.Num)
		}
		out.Mask[i] = v.Available
	}
	copy(out.Timestamps, col.Timestamps)
	out.Values = nums
	out.Bools = bools
	return out
}

type validateRequest struct {
	Expression json.RawMessage `json:"expression"`
	Dataset    DatasetPayload  `json:"dataset"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	root, err := ir.FromJSON(req.Expression)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ds, err := BuildDataset(req.Dataset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result := preview.Validate(root, ds.DescribeSchema(), s.cat, s.kernels)
	writeJSON(w, http.StatusOK, result)
}

type analyzeRequest struct {
	Expression json.RawMessage `json:"expression"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	root, err := ir.FromJSON(req.Expression)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := preview.Analyze(root, s.cat, s.kernels)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAnalyzeYAML is the hand-authored-expression counterpart of
// handleAnalyze: it accepts an irdoc.Document (YAML, per internal/irtext)
// instead of a JSON ir.Node, for callers that want to paste a named,
// versioned expression rather than construct the canonical tagged-union
// wire format by hand. JSON stays the canonical format for programmatic
// callers (handleAnalyze/handlePreview/handleValidate); this is a
// convenience frontend over the same Analyze call.
func (s *Server) handleAnalyzeYAML(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	_, root, err := irtext.Load(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := preview.Analyze(root, s.cat, s.kernels)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type createSessionRequest struct {
	Expression json.RawMessage `json:"expression"`
	Dataset    DatasetPayload  `json:"dataset"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// handleCreateSession compiles expression against dataset's schema and
// starts a fresh incremental evaluator.Session, grounded on the teacher's
// NewExecution-then-register-in-memory pattern (factory.go), generalized
// from a workflow execution to a long-lived incremental session a caller
// feeds events to via handleStepSession.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	root, err := ir.FromJSON(req.Expression)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ds, err := BuildDataset(req.Dataset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	plan, err := compilePlan(root, s.cat, s.kernels, ds.DescribeSchema())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	sess := evaluator.Initialize(plan, s.kernels)
	id := s.sessions.create(sess, plan)
	writeJSON(w, http.StatusOK, createSessionResponse{SessionID: id})
}

type stepSessionRequest struct {
	Events []evaluator.Event `json:"events"`
}

// handleStepSession feeds one or more events to an existing session in
// order, publishing each step's NodeEvaluated/SessionStepped events to any
// client subscribed to this session id over /v1/stream, then snapshots it
// to the configured snapshotstore.Store -- every Step persists, matching
// section 5's "a host may snapshot after every Step" allowance rather than
// only on a timer.
func (s *Server) handleStepSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entry, ok := s.sessions.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownSession(id))
		return
	}
	var req stepSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start := time.Now()
	var result *evaluator.BatchResult
	for _, ev := range req.Events {
		var err error
		result, err = stream.StepAndPublish(r.Context(), entry.sess, entry.plan, ev, id, s.obs)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
	}
	s.metrics.RecordStep(r.Context(), float64(time.Since(start).Milliseconds()), len(entry.plan.Nodes))

	snap, err := entry.sess.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.sessions.store.Save(r.Context(), id, snap); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.RecordSnapshot(r.Context())

	out := previewResponse{Series: make(map[string]seriesResponse, len(result.SeriesByOutput)), Trim: result.Trim}
	for name, col := range result.SeriesByOutput {
		out.Series[name] = columnToResponse(col)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSessionSnapshot returns the last durably-saved snapshot for a
// session id, independent of whether that session is still live in this
// process -- the point of snapshotstore.Store being separate from
// sessionManager's in-memory map.
func (s *Server) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.sessions.store.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, snapshotstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func errUnknownSession(id string) error {
	return fmt.Errorf("api: unknown session %q", id)
}

// handleStream upgrades to a websocket connection subscribed to a session's
// incremental evaluation events, grounded on the teacher's
// infrastructure/websocket client/hub upgrade handler.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	client, err := stream.Upgrade(s.hub, w, r)
	if err != nil {
		s.log.Raw().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	go client.Run()
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
