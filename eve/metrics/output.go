package metrics

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// OutputFormatter renders events for human-readable display, adapted from
// annotations.OutputFormatter's latency-colorized event log down to this
// module's smaller event set.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter returns a formatter writing to w (stdout if nil), with
// color enabled only when w is an *os.File attached to a terminal.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}
	return &OutputFormatter{useColor: useColor, writer: w}
}

// Handle implements Handler, printing each event as it occurs.
func (f *OutputFormatter) Handle(event Event) {
	fmt.Fprintln(f.writer, f.Format(event))
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case RoundBegin:
		return fmt.Sprintf("%s %s round %v starting", latency, f.colorize("===", color.FgYellow), event.Data["round"])

	case RoundComplete:
		return fmt.Sprintf("%s round %v complete, changed=%v", latency, event.Data["round"], event.Data["changed"])

	case BlockExecuted:
		return fmt.Sprintf("%s block %v executed", latency, event.Data["block"])

	case CommitApplied:
		return fmt.Sprintf("%s %s commit applied with %s",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("entries", event.Data["entries"].(int)))

	case Divergence:
		return fmt.Sprintf("%s %s Fixpoint Error: round %v reached MAX_ROUNDS",
			latency, f.colorize("✗", color.FgRed), event.Data["round"])

	case RemoteSuspended:
		return fmt.Sprintf("%s block %v suspended, awaiting remote response", latency, event.Data["block"])

	case RemoteResumed:
		return fmt.Sprintf("%s block %v resumed", latency, event.Data["block"])

	default:
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

func (f *OutputFormatter) formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)
	if !f.useColor {
		return s
	}
	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if !f.useColor {
		return text
	}
	return color.CyanString(text)
}

func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// isTerminal is a simplified stand-in for proper terminal detection (the
// teacher's own comment notes a real implementation would reach for
// golang.org/x/term); good enough for deciding when to emit ANSI codes.
func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2)
}
