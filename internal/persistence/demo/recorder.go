// Package demo records broadcast server messages as compressed JSONL so a
// session can be replayed or audited later.
package demo

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"racecore/internal/protocol"
)

// Entry is one recorded message.
type Entry struct {
	Tick int64           `json:"tick"`
	Type protocol.Kind   `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Recorder appends entries to hourly files named <prefix>-<yyyy-mm-dd-hh>.jsonl.zst.
type Recorder struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewRecorder(baseDir, prefix string) *Recorder {
	return &Recorder{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

// Record writes msg as sent at tick.
func (r *Recorder) Record(tick int64, msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("demo: encode %s: %w", msg.Kind(), err)
	}
	return r.write(Entry{Tick: tick, Type: msg.Kind(), Data: data})
}

func (r *Recorder) write(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hour := r.now().UTC().Format("2006-01-02-15")
	if hour != r.curHour {
		if err := r.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *Recorder) rotateLocked(hour string) error {
	if err := r.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(r.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f = f
	r.enc = enc
	r.w = bufio.NewWriterSize(enc, 64*1024)
	r.curHour = hour
	return nil
}

func (r *Recorder) closeLocked() error {
	var err1 error
	if r.w != nil {
		_ = r.w.Flush()
	}
	if r.enc != nil {
		err1 = r.enc.Close()
		r.enc = nil
	}
	if r.f != nil {
		_ = r.f.Close()
		r.f = nil
	}
	r.w = nil
	r.curHour = ""
	return err1
}

func (r *Recorder) pathForHour(hour string) string {
	return filepath.Join(r.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", r.prefix, hour))
}

// ReadFile decodes every entry of one recorded file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("demo: line %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
