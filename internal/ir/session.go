package ir

// SessionStatus is the lifecycle state of an ingestion session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionComplete  SessionStatus = "complete"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// Session is the store record of one trace ingestion.
// Records counts fully applied trace records; a failed or cancelled
// session keeps everything up to that record.
type Session struct {
	ID         string        `json:"id"`
	TraceName  string        `json:"trace_name"`
	StartedAt  int64         `json:"started_at"`  // unix seconds
	FinishedAt int64         `json:"finished_at"` // 0 while running
	Records    int64         `json:"records"`
	Status     SessionStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
}
