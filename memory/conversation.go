package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/petasbytes/research-agent/internal/transcript"
)

// LoadConversation reads a transcript file. A missing file yields nil, nil.
func LoadConversation(path string) ([]transcript.Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return decode(b)
}

// SaveConversation writes msgs to path as indented JSON.
func SaveConversation(path string, msgs []transcript.Message) error {
	b, err := encode(msgs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func encode(msgs []transcript.Message) ([]byte, error) {
	if msgs == nil {
		msgs = []transcript.Message{}
	}
	b, err := json.MarshalIndent(msgs, "", " ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return b, nil
}

func decode(b []byte) ([]transcript.Message, error) {
	var msgs []transcript.Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return msgs, nil
}
