// Package control implements the line-oriented IPC protocol between the
// agent and its controller. The controller writes one JSON command per line
// on the agent's stdin; the agent answers failures with an error message on
// stdout. Anything on the wire that is not a well-formed command is ignored.
package control

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/francishero/agent/internal/backup"
	"github.com/francishero/agent/internal/logging"
)

// Protocol message types
const (
	TypeStartBackup = "startBackup"
	TypeError       = "error"
)

// maxCommandSize bounds one command line; configs carry PEM keys so the
// default bufio limit is too small.
const maxCommandSize = 1 << 20

// Message is one line of the controller protocol
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// BackupInfo carries controller-assigned upload session fields. The managed
// tier's control plane names the object and opens the multipart session
// before the agent is started.
type BackupInfo struct {
	ObjectName string `json:"objectName,omitempty"`
	UploadID   string `json:"uploadId,omitempty"`
}

// StartPayload is the body of a startBackup command
type StartPayload struct {
	Config     backup.JobConfig `json:"config"`
	BackupInfo BackupInfo       `json:"backupInfo"`
}

// Listener reads controller commands from a stream. Lines that are not
// valid startBackup commands are logged at debug level and skipped; the
// controller never receives a protocol error for them.
type Listener struct {
	scanner *bufio.Scanner
	logger  *logging.Logger
}

// NewListener creates a Listener over r
func NewListener(r io.Reader, logger *logging.Logger) *Listener {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxCommandSize)
	return &Listener{
		scanner: scanner,
		logger:  logger,
	}
}

// Next blocks until the controller sends a valid startBackup command and
// returns its payload. It returns io.EOF when the command stream closes.
func (l *Listener) Next() (*StartPayload, error) {
	for l.scanner.Scan() {
		line := l.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		payload, ok := ParseStart(line, l.logger)
		if !ok {
			continue
		}
		return payload, nil
	}

	if err := l.scanner.Err(); err != nil {
		return nil, backup.NewUnexpectedError("failed to read command stream", err)
	}
	return nil, io.EOF
}

// ParseStart decodes one command line. Malformed or unrecognized input
// returns ok=false and has no other effect.
func ParseStart(line []byte, logger *logging.Logger) (*StartPayload, bool) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		logger.WithField("error", err.Error()).Debug("Ignoring malformed command")
		return nil, false
	}
	if msg.Type != TypeStartBackup {
		logger.WithField("type", msg.Type).Debug("Ignoring unrecognized command")
		return nil, false
	}

	var payload StartPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.WithField("error", err.Error()).Debug("Ignoring startBackup command with malformed payload")
		return nil, false
	}
	return &payload, true
}

// SeedRecord creates the attempt record for a start command, applying any
// controller-assigned session fields.
func (p *StartPayload) SeedRecord() *backup.Record {
	record := backup.NewRecord()
	record.Seed(p.BackupInfo.ObjectName, p.BackupInfo.UploadID)
	return record
}

// Emitter writes protocol messages back to the controller. Safe for
// concurrent use.
type Emitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewEmitter creates an Emitter over w
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{enc: json.NewEncoder(w)}
}

// EmitError reports a failed job to the controller. The payload is the
// job's error payload: the error code or remote response body, a newline,
// and the diagnostic trace.
func (e *Emitter) EmitError(payload string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(Message{
		Type:    TypeError,
		Payload: mustMarshalString(payload),
	})
}

func mustMarshalString(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}
