package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Action is a user action worth recording
type Action string

const (
	ActionLogin           Action = "LOGIN"
	ActionRegister        Action = "REGISTER"
	ActionLogout          Action = "LOGOUT"
	ActionUpload          Action = "UPLOAD"
	ActionGenerateInsight Action = "GENERATE_INSIGHT"
	ActionDelete          Action = "DELETE"
	ActionAddVitals       Action = "ADD_VITALS"
)

// Resource names what an action touched
type Resource string

const (
	ResourceSession Resource = "session"
	ResourceReport  Resource = "report"
	ResourceInsight Resource = "insight"
	ResourceVitals  Resource = "vitals"
)

// Entry is one audit record
type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Action     Action    `json:"action"`
	Resource   Resource  `json:"resource"`
	ResourceID string    `json:"resourceId,omitempty"`
	Succeeded  bool      `json:"succeeded"`
	Timestamp  time.Time `json:"timestamp"`
	IPAddress  string    `json:"ipAddress,omitempty"`
}

// Logger records user actions to a named zap logger and keeps the most recent
// entries in memory
type Logger struct {
	logger *zap.Logger

	mu      sync.Mutex
	recent  []Entry
	maxKeep int
}

// NewLogger creates an audit logger keeping up to maxKeep entries in memory
func NewLogger(logger *zap.Logger, maxKeep int) *Logger {
	return &Logger{
		logger:  logger.Named("audit"),
		maxKeep: maxKeep,
	}
}

// Log records an entry, filling in its id and timestamp
func (l *Logger) Log(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.logger.Info("Audit log entry",
		zap.String("audit_id", entry.ID),
		zap.String("user_id", entry.UserID),
		zap.String("action", string(entry.Action)),
		zap.String("resource", string(entry.Resource)),
		zap.String("resource_id", entry.ResourceID),
		zap.Bool("succeeded", entry.Succeeded),
		zap.Time("timestamp", entry.Timestamp),
		zap.String("ip_address", entry.IPAddress),
	)

	if l.maxKeep > 0 {
		l.mu.Lock()
		l.recent = append(l.recent, entry)
		if len(l.recent) > l.maxKeep {
			l.recent = l.recent[len(l.recent)-l.maxKeep:]
		}
		l.mu.Unlock()
	}

	return entry
}

// Recent returns up to limit entries, newest first
func (l *Logger) Recent(limit int) []Entry {
	return l.RecentFor("", limit)
}

// RecentFor returns up to limit entries of userID, newest first. An empty userID
// matches every entry.
func (l *Logger) RecentFor(userID string, limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, min(limit, len(l.recent)))
	for i := len(l.recent) - 1; i >= 0 && len(out) < limit; i-- {
		if userID != "" && l.recent[i].UserID != userID {
			continue
		}
		out = append(out, l.recent[i])
	}
	return out
}
