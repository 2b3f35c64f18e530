package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/sherlog/internal/duckdb"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const controllerGlog = "[tq|1700000000000]:[s|4]:[i|1]:[m|Motor: starting]\r\n" +
	"[tq|1700000001000]:[s|0]:[i|1]:[m|Motor: stall detected]\r\n" +
	"[tq|1700000000500]:[s|3]:[i|2]:[m|Sensor: temperature high]\r\n"

func newTestServer(t *testing.T) (*Server, *duckdb.Store, http.Handler) {
	t.Helper()
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := NewServer("", store)
	return srv, store, srv.Handler()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %s: %v", w.Body.String(), err)
	}
}

func ingest(t *testing.T, h http.Handler, path string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/files", map[string]string{"path": path})
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, w, &resp)
	return resp.ID
}

func TestHealthEndpoint(t *testing.T) {
	_, _, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["file_count"] != float64(0) {
		t.Errorf("file_count = %v, want 0", body["file_count"])
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	_, _, h := newTestServer(t)
	w := do(t, h, http.MethodPost, "/api/health", nil)
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 405 or 404", w.Code)
	}
}

func TestIngestAndBrowse(t *testing.T) {
	_, _, h := newTestServer(t)
	path := writeFile(t, "controller.glog", controllerGlog)
	id := ingest(t, h, path)

	w := do(t, h, http.MethodGet, "/api/files", nil)
	var files struct {
		Files []fileJSON `json:"files"`
	}
	decode(t, w, &files)
	if len(files.Files) != 1 || files.Files[0].ID != id || files.Files[0].Entries != 3 {
		t.Fatalf("files = %+v", files.Files)
	}
	if files.Files[0].Name != "controller.glog" {
		t.Errorf("name = %q", files.Files[0].Name)
	}

	w = do(t, h, http.MethodGet, "/api/files/"+id+"/sources", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sources status = %d", w.Code)
	}
	var sources struct {
		Sources []sourceJSON `json:"sources"`
	}
	decode(t, w, &sources)
	want := []sourceJSON{
		{ID: 0, Name: "controller.glog/Motor", Entries: 2},
		{ID: 1, Name: "controller.glog/Sensor", Entries: 1},
	}
	if len(sources.Sources) != len(want) {
		t.Fatalf("sources = %+v", sources.Sources)
	}
	for i := range want {
		if sources.Sources[i] != want[i] {
			t.Errorf("source %d = %+v, want %+v", i, sources.Sources[i], want[i])
		}
	}

	w = do(t, h, http.MethodGet, "/api/files/"+id+"/severity", nil)
	var sev struct {
		Counts map[string]int64 `json:"counts"`
	}
	decode(t, w, &sev)
	if sev.Counts["INFO"] != 1 || sev.Counts["WARNING"] != 1 || sev.Counts["CRITICAL"] != 1 {
		t.Errorf("counts = %v", sev.Counts)
	}
}

func TestEntriesEndpoint(t *testing.T) {
	_, _, h := newTestServer(t)
	id := ingest(t, h, writeFile(t, "controller.glog", controllerGlog))

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all in time order", "?file=" + id, []string{"Motor: starting", "Sensor: temperature high", "Motor: stall detected"}},
		{"by source", "?file=" + id + "&source=0", []string{"Motor: starting", "Motor: stall detected"}},
		{"by level", "?file=" + id + "&level=warn,critical", []string{"Sensor: temperature high", "Motor: stall detected"}},
		{"search", "?file=" + id + "&q=STALL", []string{"Motor: stall detected"}},
		{"search case sensitive", "?file=" + id + "&q=STALL&case=true", []string{}},
		{"limit", "?file=" + id + "&limit=1", []string{"Motor: starting"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/api/entries"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			var resp struct {
				Entries []entryJSON `json:"entries"`
			}
			decode(t, w, &resp)
			if len(resp.Entries) != len(tt.want) {
				t.Fatalf("entries = %+v, want %v", resp.Entries, tt.want)
			}
			for i, msg := range tt.want {
				if resp.Entries[i].Message != msg {
					t.Errorf("entry %d = %q, want %q", i, resp.Entries[i].Message, msg)
				}
			}
		})
	}
}

func TestEntriesEndpoint_BadParams(t *testing.T) {
	_, _, h := newTestServer(t)
	for _, q := range []string{"?source=x", "?source=-1", "?level=loud", "?limit=0", "?limit=abc"} {
		w := do(t, h, http.MethodGet, "/api/entries"+q, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestIngestErrors(t *testing.T) {
	_, _, h := newTestServer(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing path", map[string]string{}, http.StatusBadRequest},
		{"no extension", map[string]string{"path": "/tmp/README"}, http.StatusBadRequest},
		{"unknown extension", map[string]string{"path": "/tmp/data.csv"}, http.StatusBadRequest},
		{"sfile without parser", map[string]string{"path": "/tmp/data.sfile"}, http.StatusBadRequest},
		{"not a robot log", map[string]string{"path": writeFile(t, "notes.txt", "just some notes\n")}, http.StatusUnprocessableEntity},
		{"missing file", map[string]string{"path": filepath.Join(t.TempDir(), "gone.glog")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/files", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestIngestRobotLog(t *testing.T) {
	_, _, h := newTestServer(t)
	robot := "2025-12-18 13:31:15.123456 - INFO - one\n" +
		"2025-12-18 13:31:16.000000 - WARN - two\n" +
		"2025-12-18 13:31:17.000000 - FAIL - three\n"
	id := ingest(t, h, writeFile(t, "debug.txt", robot))

	w := do(t, h, http.MethodGet, "/api/entries?file="+id+"&level=error", nil)
	var resp struct {
		Entries []entryJSON `json:"entries"`
	}
	decode(t, w, &resp)
	if len(resp.Entries) != 1 || resp.Entries[0].Message != "three" {
		t.Errorf("entries = %+v", resp.Entries)
	}
}

func TestFileNotFound(t *testing.T) {
	_, _, h := newTestServer(t)
	for _, target := range []string{"/api/files/nope", "/api/files/nope/sources", "/api/files/nope/severity"} {
		w := do(t, h, http.MethodGet, target, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", target, w.Code)
		}
	}
	w := do(t, h, http.MethodDelete, "/api/files/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete status = %d, want 404", w.Code)
	}
}

func TestDeleteFile(t *testing.T) {
	_, store, h := newTestServer(t)
	id := ingest(t, h, writeFile(t, "controller.glog", controllerGlog))

	w := do(t, h, http.MethodDelete, "/api/files/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	files, err := store.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("files = %+v", files)
	}
}

func TestShiftEndpoint(t *testing.T) {
	_, _, h := newTestServer(t)
	id := ingest(t, h, writeFile(t, "controller.glog", controllerGlog))

	w := do(t, h, http.MethodPost, "/api/files/"+id+"/shift", map[string]any{"source": 1, "shift": "+2"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Shift    string `json:"shift"`
		Affected int64  `json:"affected"`
	}
	decode(t, w, &resp)
	if resp.Shift != "+0D 00:00:02.000" || resp.Affected != 1 {
		t.Errorf("resp = %+v", resp)
	}

	w = do(t, h, http.MethodGet, "/api/entries?file="+id, nil)
	var entries struct {
		Entries []entryJSON `json:"entries"`
	}
	decode(t, w, &entries)
	if last := entries.Entries[len(entries.Entries)-1]; last.Message != "Sensor: temperature high" {
		t.Errorf("last entry = %q, want shifted sensor entry", last.Message)
	}
}

func TestShiftEndpoint_BadRequest(t *testing.T) {
	_, _, h := newTestServer(t)
	id := ingest(t, h, writeFile(t, "controller.glog", controllerGlog))

	for _, body := range []map[string]any{
		{"shift": "+2"},
		{"source": 0},
		{"source": 0, "shift": "soon"},
	} {
		w := do(t, h, http.MethodPost, "/api/files/"+id+"/shift", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%v: status = %d, want 400", body, w.Code)
		}
	}
}

func TestQueryEndpoint(t *testing.T) {
	_, _, h := newTestServer(t)
	ingest(t, h, writeFile(t, "controller.glog", controllerGlog))

	w := do(t, h, http.MethodPost, "/api/query", map[string]string{"sql": "SELECT COUNT(*) AS n FROM entries"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		RowCount int `json:"row_count"`
	}
	decode(t, w, &resp)
	if resp.RowCount != 1 {
		t.Errorf("row_count = %d, want 1", resp.RowCount)
	}
}

func TestQueryEndpoint_Rejects(t *testing.T) {
	_, _, h := newTestServer(t)
	for _, sql := range []string{"", "DROP TABLE entries", "INSERT INTO files VALUES ('a','b','c',now())", "ATTACH 'x.db'"} {
		w := do(t, h, http.MethodPost, "/api/query", map[string]string{"sql": sql})
		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", sql, w.Code)
		}
	}
}

func TestSchemaEndpoint(t *testing.T) {
	_, _, h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/api/schema", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Tables map[string][]map[string]string `json:"tables"`
	}
	decode(t, w, &resp)
	for _, table := range []string{"files", "sources", "entries"} {
		if len(resp.Tables[table]) == 0 {
			t.Errorf("table %s missing from schema", table)
		}
	}
}

func TestStartStop(t *testing.T) {
	_, store, _ := newTestServer(t)
	srv := NewServer("127.0.0.1:0", store)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	gin.SetMode(gin.TestMode)

	resp, err := http.Get("http://" + srv.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
