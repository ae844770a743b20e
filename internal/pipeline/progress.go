package pipeline

import "time"

// Stage names, in run order.
const (
	StageScript = "script"
	StageEDL    = "edl"
	StageImages = "images"
	StageAudio  = "audio"
	StageVideo  = "video"
)

// Event statuses.
const (
	StatusStarted  = "started"
	StatusProgress = "progress"
	StatusDone     = "done"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Event is one progress notification of a run.
type Event struct {
	RunID   string    `json:"run_id"`
	Stage   string    `json:"stage"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Path    string    `json:"path,omitempty"`
	Done    int       `json:"done,omitempty"`
	Total   int       `json:"total,omitempty"`
	Time    time.Time `json:"time"`
}

// Progress receives the events of a run. Implementations must be safe for
// concurrent use: clip events arrive from render workers.
type Progress interface {
	Report(Event)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(Event)

func (f ProgressFunc) Report(e Event) { f(e) }

type nopProgress struct{}

func (nopProgress) Report(Event) {}
