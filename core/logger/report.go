package logger

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/josephlewis42/mdcmdrun/core/shellwords"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged directives.
type Report struct {
	LogEntries int        `json:"log_entries"`
	Sessions   StrCounter `json:"sessions"`

	Outcomes  StrCounter `json:"outcomes"`
	ExitCodes StrCounter `json:"exit_codes"`
	Programs  StrCounter `json:"programs"`

	// Failures lists directives that produced a banner or aborted the build.
	Failures *PathCounter `json:"failures"`
	// Slowest holds the longest running command seen.
	Slowest *SlowCommand `json:"slowest,omitempty"`
}

// SlowCommand identifies a single long running directive.
type SlowCommand struct {
	Chapter        string `json:"chapter"`
	Command        string `json:"command"`
	DurationMicros int64  `json:"duration_micros"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		Failures: NewPathCounter("chapter", "command", "outcome"),
	}
}

// Update adds a single entry to the report.
func (r *Report) Update(le *LogEntry) {
	r.LogEntries++
	r.Sessions.Increment(le.SessionID)
	r.Outcomes.Increment(le.Outcome)

	if le.ExitCode != nil {
		r.ExitCodes.Increment(strconv.Itoa(*le.ExitCode))
	}

	if words, err := shellwords.Split(le.Command); err == nil && len(words) > 0 {
		r.Programs.Increment(words[0])
	}

	if le.Outcome != OutcomeOK {
		command := le.Command
		if command == "" {
			command = strings.TrimSpace(le.Raw)
		}
		r.Failures.Increment(le.Chapter, command, le.Outcome)
	}

	if le.Outcome != OutcomeError && (r.Slowest == nil || le.DurationMicros > r.Slowest.DurationMicros) {
		r.Slowest = &SlowCommand{
			Chapter:        le.Chapter,
			Command:        le.Command,
			DurationMicros: le.DurationMicros,
		}
	}
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// MarshalJSON implements a custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	if s.internal == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of tuples of strings seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Len returns the number of distinct tuples seen.
func (ctr *PathCounter) Len() int {
	return len(ctr.internal)
}

// MarshalJSON implements a custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
