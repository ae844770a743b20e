package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/faceless/internal/pipeline"
)

// Job statuses.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Job is a background pipeline run started through the API.
type Job struct {
	ID      string    `json:"id"`
	Status  string    `json:"status"`
	Topic   string    `json:"topic"`
	Stage   string    `json:"stage,omitempty"`
	Error   string    `json:"error,omitempty"`
	Dir     string    `json:"dir,omitempty"`
	Script  string    `json:"script,omitempty"`
	EDL     string    `json:"edl,omitempty"`
	Report  string    `json:"report,omitempty"`
	Plan    string    `json:"plan,omitempty"`
	Video   string    `json:"video,omitempty"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

func (j *Job) finished() bool {
	return j.Status == JobDone || j.Status == JobFailed
}

// Message is what a job's websocket carries.
type Message struct {
	Type  string          `json:"type"` // event or job
	Event *pipeline.Event `json:"event,omitempty"`
	Job   *Job            `json:"job,omitempty"`
}

type jobEntry struct {
	job    Job
	events []pipeline.Event
	subs   map[chan []byte]struct{}
}

// JobStore keeps jobs in memory and fans their events out to watchers.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*jobEntry
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*jobEntry)}
}

func (s *JobStore) Create(topic string) Job {
	now := time.Now()
	e := &jobEntry{
		job:  Job{ID: uuid.NewString(), Status: JobQueued, Topic: topic, Created: now, Updated: now},
		subs: make(map[chan []byte]struct{}),
	}
	s.mu.Lock()
	s.jobs[e.job.ID] = e
	s.mu.Unlock()
	return e.job
}

func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// Report records a pipeline event for the job and broadcasts it.
func (s *JobStore) Report(id string, ev pipeline.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return
	}
	e.events = append(e.events, ev)
	e.job.Status = JobRunning
	e.job.Stage = ev.Stage
	e.job.Updated = time.Now()
	s.publish(e, Message{Type: "event", Event: &ev})
}

// Finish stores the outcome of the job and closes its watchers.
func (s *JobStore) Finish(id string, res *pipeline.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return
	}

	j := &e.job
	j.Updated = time.Now()
	if res != nil {
		j.Dir, j.Script, j.EDL, j.Report, j.Plan, j.Video = res.Dir, res.ScriptPath, res.EDLPath, res.ReportPath, res.PlanPath, res.VideoPath
	}
	if err != nil {
		j.Status, j.Error = JobFailed, err.Error()
	} else {
		j.Status = JobDone
	}

	snapshot := *j
	s.publishFinal(e, Message{Type: "job", Job: &snapshot})
	for ch := range e.subs {
		close(ch)
		delete(e.subs, ch)
	}
}

// publish sends without blocking; a watcher that cannot keep up loses messages.
func (s *JobStore) publish(e *jobEntry, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	for ch := range e.subs {
		select {
		case ch <- data:
		default:
		}
	}
}

// publishFinal makes room for the terminal message on a full watcher by
// dropping its oldest pending message.
func (s *JobStore) publishFinal(e *jobEntry, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	for ch := range e.subs {
		select {
		case ch <- data:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- data:
		default:
		}
	}
}

// Watch returns the messages sent so far and a channel with the following
// ones. The channel is closed when the job finishes; for a finished job it
// is returned already closed.
func (s *JobStore) Watch(id string) ([][]byte, <-chan []byte, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return nil, nil, nil, false
	}

	backlog := make([][]byte, 0, len(e.events)+1)
	for i := range e.events {
		if data, err := json.Marshal(Message{Type: "event", Event: &e.events[i]}); err == nil {
			backlog = append(backlog, data)
		}
	}

	ch := make(chan []byte, 64)
	if e.job.finished() {
		snapshot := e.job
		if data, err := json.Marshal(Message{Type: "job", Job: &snapshot}); err == nil {
			backlog = append(backlog, data)
		}
		close(ch)
		return backlog, ch, func() {}, true
	}

	e.subs[ch] = struct{}{}
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
	}
	return backlog, ch, cancel, true
}
