// Package audit appends the client's notable activity (sign-ins, sign-outs,
// denied navigation, administrative actions) to a JSON-lines file.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Action string

const (
	ActionLogin          Action = "auth.login"
	ActionRegister       Action = "auth.register"
	ActionLogout         Action = "auth.logout"
	ActionForcedLogout   Action = "auth.forced_logout"
	ActionRouteDenied    Action = "route.denied"
	ActionIssueCreate    Action = "issue.create"
	ActionIssueRespond   Action = "issue.respond"
	ActionIssueResolve   Action = "issue.resolve"
	ActionUpdateCreate   Action = "update.create"
	ActionFeedbackSubmit Action = "feedback.submit"
	ActionProfileUpdate  Action = "user.profile"
	ActionUserRole       Action = "user.role"
	ActionUserToggle     Action = "user.toggle_status"
	ActionUserDelete     Action = "user.delete"
	ActionCommentUnflag  Action = "comment.unflag"
	ActionCommentDelete  Action = "comment.delete"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

type Event struct {
	At        string `json:"at"`
	RequestID string `json:"request_id,omitempty"`
	Actor     string `json:"actor"`
	Role      string `json:"role,omitempty"`
	Action    Action `json:"action"`
	Target    string `json:"target,omitempty"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
}

// Logger is a no-op when constructed with an empty path.
type Logger struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

func NewLogger(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

func (l *Logger) Record(e Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	if e.At == "" {
		e.At = l.now().UTC().Format(time.RFC3339)
	}
	if e.Actor == "" {
		e.Actor = "anonymous"
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir audit log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write audit log entry: %w", err)
	}
	return nil
}
