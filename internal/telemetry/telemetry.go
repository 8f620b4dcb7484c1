package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const eventsFile = "events.jsonl"

// Tool dispatch runs on its own goroutine; keep lines from interleaving.
var writeMu sync.Mutex

// Header leads every event line.
type Header struct {
	Time   string `json:"time"`
	Event  string `json:"event"`
	TurnID string `json:"turn_id"`
}

// Emit appends one JSON line to <ArtifactsDir>/events.jsonl when AGT_OBSERVE_JSON=1.
// The turn id comes from ctx. payload must encode to a JSON object (or be nil);
// its fields follow the header on the same line.
func Emit(ctx context.Context, name string, payload any) {
	if !ObserveEnabled() {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	line, err := encode(Header{
		Time:   time.Now().UTC().Format(time.RFC3339Nano),
		Event:  name,
		TurnID: turnID,
	}, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: %s: %v\n", name, err)
		return
	}
	write(line)
}

func encode(h Header, payload any) ([]byte, error) {
	head, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return head, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	switch {
	case bytes.Equal(body, []byte("null")), bytes.Equal(body, []byte("{}")):
		return head, nil
	case body[0] != '{':
		return nil, fmt.Errorf("payload is not an object: %T", payload)
	}
	out := append(head[:len(head)-1:len(head)-1], ',')
	return append(out, body[1:]...), nil
}

func write(line []byte) {
	writeMu.Lock()
	defer writeMu.Unlock()

	dir := ArtifactsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: mkdir %s: %v\n", dir, err)
		return
	}

	path := filepath.Join(dir, eventsFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: write %s: %v\n", path, err)
	}
}
