// Package ipc is the message protocol between the supervisor and the runner
// child: newline-delimited JSON over a dedicated pipe in each direction.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/yaklabco/zoar/pkg/fault"
)

// File descriptors of the IPC pipes in the child process.
const (
	ChildReadFD  = 3
	ChildWriteFD = 4
)

type Type string

const (
	TypeStart Type = "start"
	TypeDone  Type = "done"
	TypeError Type = "error"
)

// Options parameterize one run in the child.
type Options struct {
	Exec       []string `json:"exec,omitempty"`
	Only       bool     `json:"only,omitempty"`
	Grep       []string `json:"grep,omitempty"`
	Generation uint64   `json:"generation"`
	RunID      string   `json:"runId,omitempty"`
}

// Summary is the outcome of one harness.
type Summary struct {
	File         string `json:"file,omitempty" yaml:"file,omitempty"`
	Pass         bool   `json:"pass" yaml:"pass"`
	Count        int    `json:"count" yaml:"count"`
	FailureCount int    `json:"failureCount" yaml:"failure_count"`
	SkipCount    int    `json:"skipCount" yaml:"skip_count"`
	SuccessCount int    `json:"successCount" yaml:"success_count"`
}

type Message struct {
	Type      Type      `json:"type"`
	Files     []string  `json:"files,omitempty"`
	Options   *Options  `json:"options,omitempty"`
	Harnesses []Summary `json:"harnesses,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func Start(files []string, opts Options) Message {
	return Message{Type: TypeStart, Files: files, Options: &opts}
}

func Done(harnesses []Summary) Message {
	if harnesses == nil {
		harnesses = []Summary{}
	}
	return Message{Type: TypeDone, Harnesses: harnesses}
}

func Error(err error) Message {
	return Message{Type: TypeError, Error: err.Error()}
}

// Validate rejects messages of unknown type.
func (m Message) Validate() error {
	switch m.Type {
	case TypeStart, TypeDone, TypeError:
		return nil
	default:
		return fmt.Errorf("%w: unexpected message type %q", fault.ErrProtocol, m.Type)
	}
}

// Writer encodes messages, one per line. It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

func (w *Writer) Write(msg Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(msg); err != nil {
		return fmt.Errorf("failed to send %s message: %w", msg.Type, err)
	}
	return nil
}

// Reader decodes messages written by a Writer.
type Reader struct {
	scanner *bufio.Scanner
}

const maxMessageSize = 16 << 20

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxMessageSize)
	return &Reader{scanner: scanner}
}

// Read returns the next message. It returns io.EOF once the peer closed its
// end without sending anything further.
func (r *Reader) Read() (Message, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return Message{}, fmt.Errorf("%w: %w", fault.ErrProtocol, err)
		}
		if err := msg.Validate(); err != nil {
			return Message{}, err
		}
		return msg, nil
	}
	if err := r.scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return Message{}, err
	}
	return Message{}, io.EOF
}
