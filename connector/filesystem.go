package connector

import (
	"bufio"
	"context"
	"encoding/csv"
	"os"
	"strings"
	"sync"
	"time"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/streamql/streamql/checkpoint"
	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/sql/types"
	"github.com/streamql/streamql/stream"
)

// ErrMissingPathOption mirrors file_system.rs's expectation that a
// "path" WITH (...) option was supplied at CREATE TABLE time.
var ErrMissingPathOption = errors.NewKind("file system connector requires a \"path\" option")

// fsChunkSize is the row-buffering threshold before a tailed batch is
// emitted, matching file_system.rs's chunk_size constant.
const fsChunkSize = 10

// FileSystemSource tails a CSV file, buffering rows until more than
// fsChunkSize have accumulated, then emitting a chunk — and, on
// reaching EOF, sleeping a second and retrying rather than
// terminating, so a streaming job over a growing file never finishes
// on its own.
type FileSystemSource struct {
	path        string
	columnKinds []types.Kind
}

// NewFileSystemSource requires options["path"]; columnKinds gives the
// declared type of each CSV field in file column order.
func NewFileSystemSource(options map[string]string, columnKinds []types.Kind) (*FileSystemSource, error) {
	path, ok := options["path"]
	if !ok {
		return nil, ErrMissingPathOption.New()
	}
	return &FileSystemSource{path: path, columnKinds: columnKinds}, nil
}

func (s *FileSystemSource) Read(ctx context.Context) <-chan stream.Result {
	out := make(chan stream.Result)
	go func() {
		defer close(out)
		file, err := os.Open(s.path)
		if err != nil {
			out <- stream.Result{Err: err}
			return
		}
		defer file.Close()

		reader := bufio.NewReader(file)
		var pending strings.Builder
		var rows []string
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			line, err := reader.ReadString('\n')
			if err != nil {
				pending.WriteString(line)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}
			row := pending.String() + strings.TrimRight(line, "\r\n")
			pending.Reset()
			rows = append(rows, row)
			if len(rows) > fsChunkSize {
				chunk, err := s.buildChunk(rows)
				if err != nil {
					out <- stream.Result{Err: err}
					return
				}
				rows = nil
				select {
				case out <- stream.Result{Msg: stream.ChunkMessage(chunk)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (s *FileSystemSource) buildChunk(rows []string) (array.Chunk, error) {
	builders := make([]*array.Builder, len(s.columnKinds))
	for i, k := range s.columnKinds {
		builders[i] = array.NewBuilder(k, len(rows))
	}
	for _, row := range rows {
		fields := strings.Split(row, ",")
		for i := range s.columnKinds {
			var field string
			if i < len(fields) {
				field = fields[i]
			}
			if err := builders[i].PushString(field); err != nil {
				return array.Chunk{}, err
			}
		}
	}
	arrays := make([]array.Array, len(builders))
	for i, b := range builders {
		arrays[i] = b.Finish()
	}
	return array.NewChunk(arrays), nil
}

func (s *FileSystemSource) Write(c array.Chunk) error                    { return nil }
func (s *FileSystemSource) OnReceiveBarrier(b checkpoint.Barrier) error { return nil }

// FileSystemSink appends rows to a CSV file via encoding/csv, flushing
// on every barrier crossing.
type FileSystemSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

func NewFileSystemSink(options map[string]string) (*FileSystemSink, error) {
	path, ok := options["path"]
	if !ok {
		return nil, ErrMissingPathOption.New()
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileSystemSink{file: f, writer: csv.NewWriter(f)}, nil
}

// Write appends every row in c as a CSV record. This is the single,
// straight-line guard the original's file_system.rs duplicated by
// accident (nesting the same `if let Some(ref mut writer)` check
// twice around an identical loop body) — see DESIGN.md Decision 2.
func (s *FileSystemSink) Write(c array.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return nil
	}
	for i := 0; i < c.Cardinality(); i++ {
		values := c.Row(i).Values()
		record := make([]string, len(values))
		for j, v := range values {
			if !v.IsNull() {
				record[j] = v.String()
			}
		}
		if err := s.writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSystemSink) OnReceiveBarrier(b checkpoint.Barrier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	return s.writer.Error()
}

func (s *FileSystemSink) Read(ctx context.Context) <-chan stream.Result {
	out := make(chan stream.Result, 1)
	out <- stream.Result{Err: ErrSinkOnly.New("file_system sink")}
	close(out)
	return out
}

func (s *FileSystemSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	return s.file.Close()
}
