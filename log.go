package studyquiz

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// InitLogger installs the text handler on apex/log and sets the level.
// An empty or unknown level falls back to info.
func InitLogger(w io.Writer, level string) {
	if w == nil {
		w = os.Stderr
	}
	log.SetHandler(&TextHandler{w: w})

	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// SetVerbose switches debug logging on or off
func SetVerbose(verbose bool) {
	if verbose {
		log.SetLevel(log.DebugLevel)
		return
	}
	log.SetLevel(log.InfoLevel)
}

// VerboseLog logs at debug level, so it only shows when verbose mode is enabled
func VerboseLog(format string, v ...interface{}) {
	log.Debugf(format, v...)
}

// TextHandler writes one line per entry: timestamp, level initial, message
// and sorted key=value fields.
type TextHandler struct {
	mu sync.Mutex
	w  io.Writer
}

// HandleLog implements log.Handler
func (h *TextHandler) HandleLog(e *log.Entry) error {
	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(strings.ToUpper(e.Level.String())[:1])
	sb.WriteString(" ")
	sb.WriteString(e.Message)

	names := e.Fields.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, " %s=%v", name, e.Fields.Get(name))
	}
	sb.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}
