package demoserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/raysh454/phishscan/internal/enrichment"
)

// DemoServer is a urlscan.io compatible reputation service answering from a
// canned verdict catalogue, for demos and local testing without an API key.
type DemoServer struct {
	cfg   Config
	rules map[string]VerdictRule
	scans map[string]*scan
	mu    sync.RWMutex
}

type scan struct {
	url   string
	polls int
}

// NewDemoServer creates a new demo server instance.
func NewDemoServer(cfg Config) *DemoServer {
	s := &DemoServer{
		cfg:   cfg,
		rules: make(map[string]VerdictRule),
		scans: make(map[string]*scan),
	}
	s.loadDefaults()
	return s
}

func (s *DemoServer) loadDefaults() {
	s.rules = make(map[string]VerdictRule)
	for _, r := range DefaultVerdicts() {
		s.rules[r.Host] = r
	}
}

// Handler returns the HTTP handler serving the reputation API and the demo
// control endpoints.
func (s *DemoServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/scan/", s.submitHandler)
	mux.HandleFunc("GET /api/v1/result/{uuid}/", s.resultHandler)

	// Control endpoints for verdict switching
	mux.HandleFunc("GET /demo/verdicts", s.getVerdictsHandler)
	mux.HandleFunc("POST /demo/set-verdict", s.setVerdictHandler)
	mux.HandleFunc("POST /demo/reset", s.resetHandler)

	return mux
}

// Start starts the demo server.
func (s *DemoServer) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("Demo reputation server starting on http://localhost%s\n", addr)
	fmt.Printf("Verdict catalogue at http://localhost%s/demo/verdicts\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// submitHandler accepts {url, visibility} and returns a scan uuid.
func (s *DemoServer) submitHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.APIKey != "" && r.Header.Get("API-Key") != s.cfg.APIKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Missing or invalid API key", "status": 401})
		return
	}

	var body struct {
		URL        string `json:"url"`
		Visibility string `json:"visibility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.URL) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Missing URL properties", "status": 400})
		return
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.scans[id] = &scan{url: body.URL}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Submission successful",
		"uuid":       id,
		"url":        body.URL,
		"visibility": body.Visibility,
	})
}

// resultHandler answers 404 for the first PendingPolls polls of a scan, then
// the verdict for its URL.
func (s *DemoServer) resultHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("uuid")

	s.mu.Lock()
	sc, ok := s.scans[id]
	if ok {
		sc.polls++
	}
	var (
		pending bool
		verdict enrichment.Verdict
	)
	if ok {
		pending = sc.polls <= s.cfg.PendingPolls
		verdict = lookup(s.rules, sc.url)
	}
	s.mu.Unlock()

	if !ok || pending {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Scan is not finished yet or does not exist", "status": 404})
		return
	}

	categories := verdict.Categories
	if categories == nil {
		categories = []string{}
	}
	tags := verdict.Tags
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task": map[string]any{"uuid": id, "url": sc.url},
		"verdicts": map[string]any{
			"overall": map[string]any{
				"score":      verdict.Score,
				"malicious":  verdict.Malicious,
				"categories": categories,
				"tags":       tags,
			},
		},
	})
}

// getVerdictsHandler returns the catalogue sorted by host.
func (s *DemoServer) getVerdictsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]VerdictRule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, rule)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	writeJSON(w, http.StatusOK, out)
}

// setVerdictHandler sets the verdict for a host from form values host,
// malicious, score and tags (comma separated).
func (s *DemoServer) setVerdictHandler(w http.ResponseWriter, r *http.Request) {
	host := strings.ToLower(strings.TrimSpace(r.FormValue("host")))
	if host == "" {
		http.Error(w, "Missing host", http.StatusBadRequest)
		return
	}

	var v enrichment.Verdict
	if m := r.FormValue("malicious"); m != "" {
		b, err := strconv.ParseBool(m)
		if err != nil {
			http.Error(w, "Invalid malicious flag", http.StatusBadRequest)
			return
		}
		v.Malicious = b
	}
	if sc := r.FormValue("score"); sc != "" {
		f, err := strconv.ParseFloat(sc, 64)
		if err != nil {
			http.Error(w, "Invalid score", http.StatusBadRequest)
			return
		}
		v.Score = f
	}
	for _, t := range strings.Split(r.FormValue("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			v.Tags = append(v.Tags, t)
		}
	}

	s.mu.Lock()
	s.rules[host] = VerdictRule{Host: host, Description: "set via control endpoint", Verdict: v}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"host":    host,
		"verdict": v,
	})
}

// resetHandler restores the default catalogue and forgets all scans.
func (s *DemoServer) resetHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.loadDefaults()
	s.scans = make(map[string]*scan)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Verdicts reset to defaults",
	})
}
