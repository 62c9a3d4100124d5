package logtail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Entry is one decoded slog JSON record.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Attrs   []Attr
}

// Attr is a key/value pair outside the standard slog fields.
type Attr struct {
	Key   string
	Value string
}

// Parse decodes a line written by slog's JSON handler. ok is false for lines
// that are not JSON objects.
func Parse(line string) (Entry, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Entry{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Entry{}, false
	}

	var e Entry
	if ts, ok := raw["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Time = parsed
		}
	}
	e.Level, _ = raw["level"].(string)
	e.Message, _ = raw["msg"].(string)

	keys := make([]string, 0, len(raw))
	for k := range raw {
		switch k {
		case "time", "level", "msg":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Attrs = append(e.Attrs, Attr{Key: k, Value: fmt.Sprint(raw[k])})
	}
	return e, true
}

// FormatLine renders a JSON record as
// "2006-01-02 15:04:05 LEVEL – message key=value ...". Other lines pass
// through untouched.
func FormatLine(line string) string {
	e, ok := Parse(line)
	if !ok {
		return line
	}
	return e.header() + e.attrs()
}

func (e Entry) header() string {
	level := strings.ToUpper(strings.TrimSpace(e.Level))
	if level == "" {
		level = "INFO"
	}
	ts := "-"
	if !e.Time.IsZero() {
		ts = e.Time.In(time.Local).Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("%s %s – %s", ts, level, e.Message)
}

func (e Entry) attrs() string {
	if len(e.Attrs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(a.Value)
	}
	return b.String()
}

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	attrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#87AFFF"))
	levelStyle = map[string]lipgloss.Style{
		"DEBUG": lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true),
		"INFO":  lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true),
		"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
		"ERROR": lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

// ColorizeLine is FormatLine with terminal colors. Colors are dropped
// automatically when the output is not a terminal.
func ColorizeLine(line string) string {
	e, ok := Parse(line)
	if !ok {
		return line
	}
	level := strings.ToUpper(strings.TrimSpace(e.Level))
	if level == "" {
		level = "INFO"
	}
	style, ok := levelStyle[level]
	if !ok {
		style = lipgloss.NewStyle()
	}
	ts := "-"
	if !e.Time.IsZero() {
		ts = e.Time.In(time.Local).Format("2006-01-02 15:04:05")
	}
	out := timeStyle.Render(ts) + " " + style.Render(level) + " – " + e.Message
	if attrs := e.attrs(); attrs != "" {
		out += attrStyle.Render(attrs)
	}
	return out
}

// ColorizeLines applies ColorizeLine to every line.
func ColorizeLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = ColorizeLine(line)
	}
	return out
}
