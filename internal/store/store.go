package store

import "tinypal/internal/model"

// Store persists assistant transcripts. View models are never stored.
type Store interface {
	AddMessage(msg model.Message) error
	ListMessages(screenID string) ([]model.Message, error)
	DeleteMessages(screenID string) error
	Close() error
}
