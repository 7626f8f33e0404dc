package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"gridlife.ai/internal/persistence/snapshot"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer

	now func() time.Time
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	// Each hour gets its own file; a second writer in the same hour appends a
	// new zstd frame, which readers decode transparently.
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Files lists prefix-*.jsonl.zst files in dir in name (and so time) order.
func Files(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadJSONL decodes every line of a compressed JSONL file, calling fn for each.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return sc.Err()
}

// TurnLogger writes one JSONL entry per recorded turn (compressed).
type TurnLogger struct{ w *JSONLZstdWriter }

func NewTurnLogger(gameDir string) *TurnLogger {
	return &TurnLogger{w: NewJSONLZstdWriter(filepath.Join(gameDir, "turns"), "turns")}
}

func (l *TurnLogger) WriteTurn(v snapshot.TurnRecord) error { return l.w.Write(v) }
func (l *TurnLogger) Close() error                         { return l.w.Close() }

// ReadTurns loads every turn logged under gameDir, in file order.
func ReadTurns(gameDir string) ([]snapshot.TurnRecord, error) {
	files, err := Files(filepath.Join(gameDir, "turns"), "turns")
	if err != nil {
		return nil, err
	}
	var out []snapshot.TurnRecord
	for _, path := range files {
		err := ReadJSONL(path, func(line []byte) error {
			var rec snapshot.TurnRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			out = append(out, rec)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecisionEntry records the action one actor chose on one turn.
type DecisionEntry struct {
	GameID  string `json:"game_id"`
	Turn    uint64 `json:"turn"`
	ActorID string `json:"actor_id"`
	Action  any    `json:"action,omitempty"`
	Matched bool   `json:"matched"`
}

// DecisionLogger writes behaviour decisions as JSONL (compressed).
type DecisionLogger struct{ w *JSONLZstdWriter }

func NewDecisionLogger(gameDir string) *DecisionLogger {
	return &DecisionLogger{w: NewJSONLZstdWriter(filepath.Join(gameDir, "decisions"), "decisions")}
}

func (l *DecisionLogger) WriteDecision(v DecisionEntry) error { return l.w.Write(v) }
func (l *DecisionLogger) Close() error                       { return l.w.Close() }
