package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ivlev/faceless/internal/config"
	"github.com/ivlev/faceless/internal/models"
	"github.com/ivlev/faceless/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLLM struct {
	answer string
	err    error
	user   string
}

func (f *fakeLLM) CompleteJSON(ctx context.Context, system, user string, temperature float64) (string, error) {
	f.user = user
	return f.answer, f.err
}

type fakeVoice struct{ err error }

func (fakeVoice) Name() string { return "fake" }

func (v fakeVoice) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if v.err != nil {
		return nil, v.err
	}
	return []byte("ID3" + text), nil
}

const scriptAnswer = `{"titulo": "Café", "segmentos": [{"id": 1, "tiempo_inicio": 0, "tiempo_fin": 5, "narracion": "Hola."}]}`

func newServer(llm pipeline.Completer, run Runner) *Server {
	cfg := config.Default()
	cfg.BuildVersion = "test"
	if run == nil {
		run = func(ctx context.Context, opts pipeline.Options, p pipeline.Progress) (*pipeline.Result, error) {
			return &pipeline.Result{}, nil
		}
	}
	return NewServer(context.Background(), cfg, llm, fakeVoice{}, run, nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(t, newServer(nil, nil).Router(), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"version":"test"`) {
		t.Errorf("unexpected response %d %s", w.Code, w.Body)
	}
}

func TestScriptEndpoint(t *testing.T) {
	llm := &fakeLLM{answer: scriptAnswer}
	r := newServer(llm, nil).Router()

	w := do(t, r, http.MethodPost, "/api/script", `{"topic": "el café", "duration": 30}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	var s models.Script
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.Title != "Café" || len(s.Segments) != 1 {
		t.Errorf("unexpected script %+v", s)
	}
	if !strings.Contains(llm.user, "30 segundos") || !strings.Contains(llm.user, "Instagram Reels / TikTok") {
		t.Errorf("request should carry the duration and default platform:\n%s", llm.user)
	}

	// refine when a script and feedback are sent
	w = do(t, r, http.MethodPost, "/api/script", `{"feedback": "más corto", "script": `+scriptAnswer+`}`)
	if w.Code != http.StatusOK || !strings.Contains(llm.user, `"más corto"`) {
		t.Errorf("expected a refine request, got %d:\n%s", w.Code, llm.user)
	}
}

func TestScriptEndpointErrors(t *testing.T) {
	tests := []struct {
		name string
		llm  pipeline.Completer
		body string
		code int
	}{
		{"no model", nil, `{"topic": "x"}`, http.StatusServiceUnavailable},
		{"bad json", &fakeLLM{answer: scriptAnswer}, `{`, http.StatusBadRequest},
		{"empty topic", &fakeLLM{answer: scriptAnswer}, `{"topic": " "}`, http.StatusBadRequest},
		{"bad answer", &fakeLLM{answer: `{"segmentos": []}`}, `{"topic": "x"}`, http.StatusUnprocessableEntity},
		{"upstream", &fakeLLM{err: errors.New("429")}, `{"topic": "x"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newServer(tt.llm, nil).Router(), http.MethodPost, "/api/script", tt.body)
			if w.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, w.Code, w.Body)
			}
		})
	}
}

func TestEDLEndpoint(t *testing.T) {
	llm := &fakeLLM{answer: `{"titulo": "Café", "timeline": [{"segmento_id": 1, "motion": {"tipo": "zoom_in", "hasta": 1.2}}]}`}
	r := newServer(llm, nil).Router()

	w := do(t, r, http.MethodPost, "/api/edl", `{"script": `+scriptAnswer+`}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	var g models.EditGuide
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatal(err)
	}
	if len(g.Timeline) != 1 || g.Timeline[0].Motion.Intensity() != 1.2 {
		t.Errorf("unexpected guide %+v", g)
	}

	if w := do(t, r, http.MethodPost, "/api/edl", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing script should be 400, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/edl", `{"script": {"segmentos": []}}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid script should be 422, got %d", w.Code)
	}
}

func TestTTSEndpoint(t *testing.T) {
	r := newServer(nil, nil).Router()
	w := do(t, r, http.MethodPost, "/api/tts", `{"text": "hola"}`)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "audio/mpeg" || w.Body.String() != "ID3hola" {
		t.Errorf("unexpected response %d %q %q", w.Code, w.Header().Get("Content-Type"), w.Body)
	}
	if w := do(t, r, http.MethodPost, "/api/tts", `{"text": ""}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty text should be 400, got %d", w.Code)
	}
}

func waitJob(t *testing.T, h http.Handler, id string) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w := do(t, h, http.MethodGet, "/api/jobs/"+id, "")
		var j Job
		json.Unmarshal(w.Body.Bytes(), &j)
		if j.finished() {
			return j
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Job{}
}

func TestGenerateJob(t *testing.T) {
	var got pipeline.Options
	run := func(ctx context.Context, opts pipeline.Options, p pipeline.Progress) (*pipeline.Result, error) {
		got = opts
		p.Report(pipeline.Event{Stage: pipeline.StageScript, Status: pipeline.StatusDone})
		return &pipeline.Result{Dir: "output/x", VideoPath: "output/x/video_final.mp4"}, nil
	}
	r := newServer(&fakeLLM{}, run).Router()

	w := do(t, r, http.MethodPost, "/api/generate", `{"topic": "el mate", "duration": 45}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body)
	}
	var accepted struct {
		JobID string `json:"job_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &accepted)
	if accepted.JobID == "" {
		t.Fatal("no job id")
	}

	job := waitJob(t, r, accepted.JobID)
	if job.Status != JobDone || job.Video != "output/x/video_final.mp4" || job.Stage != pipeline.StageScript {
		t.Errorf("unexpected job %+v", job)
	}
	if got.RunID != accepted.JobID || got.Request.Topic != "el mate" || got.Request.Duration != 45 {
		t.Errorf("unexpected options %+v", got)
	}

	if w := do(t, r, http.MethodGet, "/api/jobs/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown job should be 404, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/generate", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing topic should be 400, got %d", w.Code)
	}
}

func TestFailedJob(t *testing.T) {
	run := func(ctx context.Context, opts pipeline.Options, p pipeline.Progress) (*pipeline.Result, error) {
		return &pipeline.Result{Dir: "output/y"}, errors.New("images stage: content policy")
	}
	r := newServer(&fakeLLM{}, run).Router()
	w := do(t, r, http.MethodPost, "/api/generate", `{"topic": "x"}`)
	var accepted map[string]string
	json.Unmarshal(w.Body.Bytes(), &accepted)

	job := waitJob(t, r, accepted["job_id"])
	if job.Status != JobFailed || !strings.Contains(job.Error, "content policy") || job.Dir != "output/y" {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestJobWebsocket(t *testing.T) {
	release := make(chan struct{})
	run := func(ctx context.Context, opts pipeline.Options, p pipeline.Progress) (*pipeline.Result, error) {
		p.Report(pipeline.Event{Stage: pipeline.StageScript, Status: pipeline.StatusStarted})
		<-release
		p.Report(pipeline.Event{Stage: pipeline.StageScript, Status: pipeline.StatusDone})
		return &pipeline.Result{VideoPath: "v.mp4"}, nil
	}
	srv := httptest.NewServer(newServer(&fakeLLM{}, run).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/generate", "application/json", bytes.NewBufferString(`{"topic": "x"}`))
	if err != nil {
		t.Fatal(err)
	}
	var accepted map[string]string
	json.NewDecoder(resp.Body).Decode(&accepted)
	resp.Body.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/jobs/" + accepted["job_id"]
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	close(release)

	var messages []Message
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			break
		}
		messages = append(messages, m)
	}

	if len(messages) != 3 {
		t.Fatalf("expected 2 events and the job, got %d: %+v", len(messages), messages)
	}
	if messages[0].Event.Status != pipeline.StatusStarted || messages[1].Event.Status != pipeline.StatusDone {
		t.Errorf("events out of order: %+v %+v", messages[0].Event, messages[1].Event)
	}
	if last := messages[2]; last.Type != "job" || last.Job.Status != JobDone || last.Job.Video != "v.mp4" {
		t.Errorf("unexpected final message %+v", last)
	}
}

func TestWebsocketUnknownJob(t *testing.T) {
	w := do(t, newServer(nil, nil).Router(), http.MethodGet, "/ws/jobs/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
