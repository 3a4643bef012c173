// ABOUTME: Best-effort access auditing for served resource records
// ABOUTME: Appends one line per request to access_log.txt when a log dir exists

package resource

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Auditor appends access records to a log file in a designated directory.
// Every failure is logged and swallowed; auditing must never fail the
// request it records.
type Auditor struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
}

// NewAuditor creates an auditor writing under dir. An empty dir disables
// auditing.
func NewAuditor(dir string, logger *slog.Logger) *Auditor {
	return &Auditor{dir: dir, logger: logger.With("component", "audit")}
}

// Record appends an access record for username. Best effort: a missing
// directory or a write failure is logged, never propagated.
func (a *Auditor) Record(username string, duration time.Duration) {
	if a.dir == "" {
		return
	}
	info, err := os.Stat(a.dir)
	if err != nil || !info.IsDir() {
		return
	}

	line := fmt.Sprintf("%d,%s,%s,%.4f\n",
		time.Now().Unix(), uuid.New().String(), username, duration.Seconds())

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(a.dir, "access_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		a.logger.Warn("could not open access log", "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		a.logger.Warn("could not write access log", "error", err)
	}
}
