package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"tinypal/internal/model"
)

type fileState struct {
	Messages []model.Message `json:"messages"`
}

type JSONStore struct {
	filePath string
	mu       sync.RWMutex
	state    fileState
}

func NewJSONStore(filePath string) (*JSONStore, error) {
	s := &JSONStore{
		filePath: filePath,
		state: fileState{
			Messages: make([]model.Message, 0),
		},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) AddMessage(msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]model.Message, 0, len(s.state.Messages)+1)
	next = append(next, s.state.Messages...)
	next = append(next, msg)
	return s.commitLocked(next)
}

// ListMessages returns the transcript of one screen in insertion order.
func (s *JSONStore) ListMessages(screenID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.Message, 0)
	for _, msg := range s.state.Messages {
		if msg.ScreenID == screenID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (s *JSONStore) DeleteMessages(screenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]model.Message, 0, len(s.state.Messages))
	for _, msg := range s.state.Messages {
		if msg.ScreenID != screenID {
			kept = append(kept, msg)
		}
	}
	if len(kept) == len(s.state.Messages) {
		return nil
	}
	return s.commitLocked(kept)
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Messages == nil {
		state.Messages = make([]model.Message, 0)
	}
	s.state = state
	return nil
}

// commitLocked writes messages to disk and only then swaps them into memory.
func (s *JSONStore) commitLocked(messages []model.Message) error {
	next := fileState{Messages: messages}
	if err := s.persist(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *JSONStore) persist(state fileState) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}
