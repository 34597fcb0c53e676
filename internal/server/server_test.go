package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fieldtrial/pkg/cache"
	"github.com/matzehuels/fieldtrial/pkg/field/geo"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/observability"
	"github.com/matzehuels/fieldtrial/pkg/pipeline"
	"github.com/matzehuels/fieldtrial/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	st := store.NewMemoryStore()
	return New(Config{
		Runner: pipeline.NewRunner(fc, nil, logger),
		Store:  st,
		Logger: logger,
	}), st
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

type created struct {
	ID     string `json:"id"`
	Seed   string `json:"seed"`
	Seeded bool   `json:"seeded"`
	Cells  int    `json:"cells"`
	Cached bool   `json:"cached"`
	Table  struct {
		Records []table.Record `json:"records"`
	} `json:"table"`
}

func createLayout(t *testing.T, h http.Handler, body string) created {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/layouts", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/layouts = %d: %s", rec.Code, rec.Body)
	}
	var c created
	if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if loc := rec.Header().Get("Location"); loc != "/v1/layouts/"+c.ID {
		t.Errorf("Location = %q", loc)
	}
	return c
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error response %q: %v", rec.Body, err)
	}
	return e
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("GET /healthz = %d %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Server"); !strings.HasPrefix(got, "fieldtrial/") {
		t.Errorf("Server header = %q", got)
	}
}

func TestCreateLayout(t *testing.T) {
	s, st := newTestServer(t)

	first := createLayout(t, s, `{"name":"north","seed":42}`)
	if first.Seed != "42" || !first.Seeded || first.Cached {
		t.Errorf("first run = %+v", first)
	}
	if first.Cells != 480 || len(first.Table.Records) != 480 {
		t.Errorf("cells = %d, records = %d, want 480", first.Cells, len(first.Table.Records))
	}

	second := createLayout(t, s, `{"name":"north","seed":42}`)
	if !second.Cached {
		t.Error("repeated seeded request should hit the table cache")
	}
	if second.ID == first.ID {
		t.Error("each request should store a new run")
	}
	for i := range first.Table.Records {
		if first.Table.Records[i].Label != second.Table.Records[i].Label {
			t.Fatalf("record %d differs between identical seeded runs", i)
		}
	}

	runs, err := st.ListRuns(context.Background(), store.ListOptions{})
	if err != nil || len(runs) != 2 {
		t.Fatalf("stored runs = %d, %v; want 2", len(runs), err)
	}
}

func TestCreateLayoutUnseeded(t *testing.T) {
	s, st := newTestServer(t)
	c := createLayout(t, s, `{}`)
	if c.Seeded || c.Cached || c.Seed == "" {
		t.Errorf("unseeded run = %+v", c)
	}

	run, err := st.GetRun(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := run.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Seed == nil {
		t.Error("stored options should carry the drawn seed")
	}
}

func TestCreateLayoutErrors(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"seed":`, http.StatusBadRequest, "PARSE_ERROR"},
		{"unknown field", `{"seeed":1}`, http.StatusBadRequest, "PARSE_ERROR"},
		{"bad strategy", `{"strategy":"spiral"}`, http.StatusBadRequest, "INVALID_CONFIG"},
		{"bad format", `{"formats":["gif"]}`, http.StatusBadRequest, "INVALID_FORMAT"},
		{
			"exhausted",
			`{"seed":1,"max_attempts":25,"types":[{"name":"only","a":"AG","b":"LG"}]}`,
			http.StatusUnprocessableEntity, "CONSTRAINT_EXHAUSTED",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/layouts", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if e := decodeError(t, rec); e.Error != tt.code {
				t.Errorf("error code = %q, want %q", e.Error, tt.code)
			}
		})
	}
}

func TestCreateLayoutBodyLimit(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.MaxBodyBytes = 16
	rec := do(t, s, http.MethodPost, "/v1/layouts", `{"name":"a very long trial name"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized body status = %d, want 400", rec.Code)
	}
}

func TestGetListDeleteLayout(t *testing.T) {
	s, _ := newTestServer(t)
	a := createLayout(t, s, `{"name":"north","seed":1}`)
	createLayout(t, s, `{"name":"south","seed":2}`)

	rec := do(t, s, http.MethodGet, "/v1/layouts/"+a.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET run = %d", rec.Code)
	}
	var run store.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatal(err)
	}
	if run.Layout == "" || run.Config == "" {
		t.Error("full run should include layout and config")
	}

	rec = do(t, s, http.MethodGet, "/v1/layouts?name=north", "")
	var list struct {
		Runs []store.Run `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Runs) != 1 || list.Runs[0].ID != a.ID || list.Runs[0].Layout != "" {
		t.Errorf("filtered list = %+v", list.Runs)
	}

	if rec := do(t, s, http.MethodGet, "/v1/layouts?limit=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}

	if rec := do(t, s, http.MethodDelete, "/v1/layouts/"+a.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/v1/layouts/"+a.ID, "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Error != "NOT_FOUND" {
		t.Errorf("GET deleted run = %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, s, http.MethodDelete, "/v1/layouts/"+a.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE = %d, want 404", rec.Code)
	}
}

func TestRenderLayout(t *testing.T) {
	s, st := newTestServer(t)
	c := createLayout(t, s, `{"name":"north"}`)
	run, err := st.GetRun(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodGet, "/v1/layouts/"+c.ID+"/csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET csv = %d: %s", rec.Code, rec.Body)
	}
	if rec.Body.String() != run.Layout {
		t.Error("rendered CSV should reproduce the stored layout")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}

	tests := []struct {
		format, contentType, prefix string
	}{
		{"svg", "image/svg+xml", "<svg"},
		{"dot", "text/vnd.graphviz; charset=utf-8", "graph Adjacency"},
		{"json", "application/json", "{"},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodGet, "/v1/layouts/"+c.ID+"/"+tt.format, "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d: %s", tt.format, rec.Code, rec.Body)
			continue
		}
		if ct := rec.Header().Get("Content-Type"); ct != tt.contentType {
			t.Errorf("%s Content-Type = %q, want %q", tt.format, ct, tt.contentType)
		}
		if !strings.HasPrefix(strings.TrimSpace(rec.Body.String()), tt.prefix) {
			t.Errorf("%s body starts %q", tt.format, rec.Body.String()[:min(40, rec.Body.Len())])
		}
	}

	if rec := do(t, s, http.MethodGet, "/v1/layouts/"+c.ID+"/gif", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/v1/layouts/missing/csv", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestAnchor(t *testing.T) {
	s, _ := newTestServer(t)
	csv := "Block,Row,Col,X,Y,Label\nT0,0,0,5,12,check\nB1,0,0,10,20,AG01\n"

	rec := do(t, s, http.MethodPost, "/v1/anchor?dms=40-06-54", csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /v1/anchor = %d: %s", rec.Code, rec.Body)
	}
	tbl, err := table.ReadCSV(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	dms, _ := geo.ParseDMS("40-06-54")
	want := dms.Feet(geo.FeetPerDegreeLatitude)
	if got := tbl.Records[0].Y; math.Abs(got-want) > 0.01 {
		t.Errorf("T0 Y = %v, want %v", got, want)
	}
	if got := tbl.Records[1].Y - tbl.Records[0].Y; math.Abs(got-8) > 0.01 {
		t.Errorf("relative offset = %v, want 8", got)
	}
	if tbl.Records[1].X != 10 {
		t.Errorf("X changed to %v", tbl.Records[1].X)
	}

	rec = do(t, s, http.MethodPost, "/v1/anchor?dms=40-06-54&block=B1", csv)
	tbl, err = table.ReadCSV(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got := tbl.Records[1].Y; math.Abs(got-want) > 0.01 {
		t.Errorf("B1 Y = %v, want %v", got, want)
	}

	errs := []struct {
		target string
		status int
	}{
		{"/v1/anchor", http.StatusBadRequest},
		{"/v1/anchor?dms=north", http.StatusBadRequest},
		{"/v1/anchor?dms=40-06-54&block=B9", http.StatusNotFound},
		{"/v1/anchor?dms=40-06-54&feet_per_degree=-1", http.StatusBadRequest},
	}
	for _, tt := range errs {
		if rec := do(t, s, http.MethodPost, tt.target, csv); rec.Code != tt.status {
			t.Errorf("POST %s = %d, want %d", tt.target, rec.Code, tt.status)
		}
	}
}

func TestMetrics(t *testing.T) {
	observability.Reset()
	defer observability.Reset()

	m := NewMetrics()
	m.Register()
	s := New(Config{
		Runner:  pipeline.NewRunner(nil, nil, log.New(io.Discard)),
		Logger:  log.New(io.Discard),
		Metrics: m,
	})

	do(t, s, http.MethodGet, "/healthz", "")
	createLayout(t, s, `{"seed":3}`)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`fieldtrial_http_requests_total{method="GET",route="/healthz",status="200"} 1`,
		`fieldtrial_generate_total{result="ok",strategy="rejection"} 1`,
		`fieldtrial_generated_cells_total 480`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
