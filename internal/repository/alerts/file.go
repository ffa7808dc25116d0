package alerts

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safety-monitor/internal/config"
	"github.com/oshokin/safety-monitor/internal/domain/safety"
	pb "github.com/oshokin/safety-monitor/internal/pb/v1"
)

// maxLineSize bounds one journal line.
const maxLineSize = 1 << 20

// FileRepository persists alerts as JSON lines on disk.
// Each line is produced and consumed via protobuf JSON (protojson) so the
// journal matches what travels over the wire.
type FileRepository struct {
	// path is the filesystem location of the journal.
	path string

	// mu protects the journal file and the cache.
	mu sync.Mutex
	// alerts caches the journal after the first read.
	alerts []*safety.Alert
	// seen indexes cached event ids.
	seen   map[string]struct{}
	loaded bool
}

// NewFileRepository creates a repository that appends to the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
		seen: make(map[string]struct{}),
	}
}

// Append writes alert as one line.
func (r *FileRepository) Append(_ context.Context, alert *safety.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}

	if _, ok := r.seen[alert.EventID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, alert.EventID)
	}

	message, err := pb.AlertToStruct(alert)
	if err != nil {
		return err
	}

	line, err := protojson.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	_, err = file.Write(append(line, '\n'))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("write journal: %w", err)
	}

	r.remember(alert.Clone())

	return nil
}

// Recent implements Repository.
func (r *FileRepository) Recent(_ context.Context, limit int) ([]*safety.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}

	return cloneAll(newestFirst(r.alerts, limit)), nil
}

// All implements Repository.
func (r *FileRepository) All(_ context.Context) ([]*safety.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}

	return cloneAll(r.alerts), nil
}

// Close implements Repository.
func (r *FileRepository) Close() error {
	return nil
}

// load reads the journal once. A missing file is an empty journal.
func (r *FileRepository) load() error {
	if r.loaded {
		return nil
	}

	contents, err := os.ReadFile(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read journal: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		message := new(structpb.Struct)
		if err = protojson.Unmarshal(line, message); err != nil {
			return fmt.Errorf("decode journal line %d: %w", lineNumber, err)
		}

		alert, err := pb.AlertFromStruct(message)
		if err != nil {
			return fmt.Errorf("decode journal line %d: %w", lineNumber, err)
		}

		r.remember(alert)
	}

	if err = scanner.Err(); err != nil {
		return fmt.Errorf("scan journal: %w", err)
	}

	r.loaded = true

	return nil
}

func (r *FileRepository) remember(alert *safety.Alert) {
	r.alerts = append(r.alerts, alert)
	r.seen[alert.EventID] = struct{}{}
}

func cloneAll(alerts []*safety.Alert) []*safety.Alert {
	result := make([]*safety.Alert, 0, len(alerts))
	for _, alert := range alerts {
		result = append(result, alert.Clone())
	}

	return result
}
