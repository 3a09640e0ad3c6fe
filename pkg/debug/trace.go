package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TraceLogger provides step-by-step trace output for device stats collection.
// It is safe for use by concurrent collectors.
type TraceLogger struct {
	mu      sync.Mutex
	writer  io.Writer
	enabled bool
}

// NewTraceLogger creates a trace logger writing to w, or stderr when w is nil.
func NewTraceLogger(w io.Writer) *TraceLogger {
	if w == nil {
		w = defaultTraceWriter()
	}
	return &TraceLogger{
		writer:  w,
		enabled: true,
	}
}

// Log records a trace entry for a collection step on a mountpoint.
func (t *TraceLogger) Log(mountpoint, step, detail string) {
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE %s] %s: %s - %s\n",
		time.Now().Format("15:04:05.000"), mountpoint, step, detail)
}

// LogValue records a parsed counter together with its raw text.
func (t *TraceLogger) LogValue(mountpoint, key, rawStr string, parsed float64) {
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE %s] %s: key=%s raw=%q parsed=%.0f\n",
		time.Now().Format("15:04:05.000"), mountpoint, key, rawStr, parsed)
}

func defaultTraceWriter() io.Writer {
	return os.Stderr
}
