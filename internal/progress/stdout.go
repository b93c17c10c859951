package progress

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Marker prefixes every progress event line on the stdout transport.
const Marker = "##PROGRESS:"

// StdoutWriter serializes events as `##PROGRESS:<json>` lines to an
// io.Writer — typically a subprocess' stdout — implementing the producer
// side of the stdout transport.
type StdoutWriter struct {
	mu  sync.Mutex
	w   io.Writer
	seq uint64
}

// NewStdoutWriter wraps w as a progress event sink.
func NewStdoutWriter(w io.Writer) *StdoutWriter {
	return &StdoutWriter{w: w}
}

// Emit assigns the next Seq and writes the marker-prefixed JSON line.
func (s *StdoutWriter) Emit(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ev.Seq = s.seq
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = io.WriteString(s.w, Marker+string(data)+"\n")
	return err
}

// Next is not supported on the write side of the stdout transport.
func (s *StdoutWriter) Next(ctx context.Context) (Event, bool) { return Event{}, false }

// Close is a no-op; the underlying writer's lifecycle is owned by the
// caller (the subprocess' stdout).
func (s *StdoutWriter) Close() {}

// DiagnosticLine is a non-marker line preserved verbatim from the
// subprocess' stdout, useful for debugging output that isn't a progress
// event.
type DiagnosticLine struct {
	Text string
}

// StdoutReader line-scans a subprocess' stdout, decoding marker-prefixed
// lines into Events and forwarding everything else as diagnostics.
type StdoutReader struct {
	events chan Event
	diags  chan DiagnosticLine
	done   chan struct{}
}

// NewStdoutReader starts scanning r in a background goroutine; no separate
// start call is needed. Events() and Diagnostics() channels close when r
// reaches EOF or ctx is cancelled.
func NewStdoutReader(ctx context.Context, r io.Reader) *StdoutReader {
	sr := &StdoutReader{
		events: make(chan Event, 256),
		diags:  make(chan DiagnosticLine, 256),
		done:   make(chan struct{}),
	}
	go sr.run(ctx, r)
	return sr
}

func (sr *StdoutReader) run(ctx context.Context, r io.Reader) {
	defer close(sr.done)
	defer close(sr.events)
	defer close(sr.diags)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := scanner.Text()
		if strings.HasPrefix(line, Marker) {
			var ev Event
			payload := strings.TrimPrefix(line, Marker)
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				log.Warn().Err(err).Msg("progress: malformed marker line, treating as diagnostic")
				sr.diags <- DiagnosticLine{Text: line}
				continue
			}
			sr.events <- ev
			continue
		}
		sr.diags <- DiagnosticLine{Text: line}
	}
}

// Events returns the channel of decoded progress events.
func (sr *StdoutReader) Events() <-chan Event { return sr.events }

// Diagnostics returns the channel of preserved non-marker lines.
func (sr *StdoutReader) Diagnostics() <-chan DiagnosticLine { return sr.diags }

// Done closes once the underlying scan loop has exited.
func (sr *StdoutReader) Done() <-chan struct{} { return sr.done }

// DrainStderr copies a subprocess' stderr into the log, concurrently with
// stdout scanning, so a full stderr pipe never deadlocks the child.
func DrainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		log.Warn().Str("stream", "stderr").Msg(scanner.Text())
	}
}

// ExtractFinalJSON scans diagnostic (non-marker) lines collected over an
// audit run and returns the last well-formed top-level JSON object found —
// a recovery path for a subprocess that exited without emitting a final
// audit result.
func ExtractFinalJSON(lines []string) (map[string]any, bool) {
	var last map[string]any
	found := false
	joined := strings.Join(lines, "\n")
	for _, candidate := range topLevelJSONObjects(joined) {
		var v map[string]any
		if err := json.Unmarshal([]byte(candidate), &v); err == nil {
			last = v
			found = true
		}
	}
	return last, found
}

// topLevelJSONObjects extracts substrings that look like balanced top-level
// `{...}` objects from s, in order of appearance.
func topLevelJSONObjects(s string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}
