package brake

import (
	"fmt"
	"strings"
)

// Logger is the log sink of the brake module
type Logger interface {
	Printf(format string, v ...interface{})
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	DebugCAN(direction string, id uint32, data []byte, length uint8)
}

// Printer is the subset of *log.Logger the fallback logger needs
type Printer interface {
	Printf(format string, v ...interface{})
}

// StdLogger is the module's fallback when no logger is configured. It tags
// each line with its level and drops debug output unless verbose is set.
type StdLogger struct {
	out     Printer
	verbose bool
}

func NewStdLogger(out Printer, verbose bool) *StdLogger {
	return &StdLogger{out: out, verbose: verbose}
}

func (l *StdLogger) Printf(format string, v ...interface{}) {
	l.Info(format, v...)
}

func (l *StdLogger) Debug(format string, v ...interface{}) {
	if l.verbose {
		l.out.Printf("brake DEBUG: "+format, v...)
	}
}

func (l *StdLogger) Info(format string, v ...interface{}) {
	l.out.Printf("brake: "+format, v...)
}

func (l *StdLogger) Warn(format string, v ...interface{}) {
	l.out.Printf("brake WARN: "+format, v...)
}

func (l *StdLogger) Error(format string, v ...interface{}) {
	l.out.Printf("brake ERROR: "+format, v...)
}

func (l *StdLogger) DebugCAN(direction string, id uint32, data []byte, length uint8) {
	if !l.verbose {
		return
	}
	if int(length) > len(data) {
		length = uint8(len(data))
	}
	l.out.Printf("brake DEBUG: %s 0x%03X %s", direction, id, formatPayload(data[:length]))
}

func formatPayload(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// DebugCANFrame traces a frame through logger
func DebugCANFrame(logger Logger, direction string, id uint32, data [8]byte, length uint8) {
	if logger != nil {
		logger.DebugCAN(direction, id, data[:], length)
	}
}
