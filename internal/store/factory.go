package store

import (
	"errors"
	"fmt"
	"strings"
)

// Engine names accepted by NewByEngine. An empty name selects SQLite.
const (
	EngineJSON   = "json"
	EngineSQLite = "sqlite"
)

var ErrUnsupportedEngine = errors.New("unsupported store engine")

// DefaultPath is where an engine keeps the transcript when no file is configured.
func DefaultPath(engine string) string {
	if normalizeEngine(engine) == EngineJSON {
		return "data/tinypal.json"
	}
	return "data/tinypal.db"
}

// NewByEngine opens the transcript store for engine at path, or at
// DefaultPath when path is blank.
func NewByEngine(engine string, path string) (Store, error) {
	name := normalizeEngine(engine)
	if strings.TrimSpace(path) == "" {
		path = DefaultPath(name)
	}
	switch name {
	case EngineSQLite:
		return NewSQLiteStore(path)
	case EngineJSON:
		return NewJSONStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, engine)
	}
}

func normalizeEngine(engine string) string {
	name := strings.ToLower(strings.TrimSpace(engine))
	if name == "" {
		return EngineSQLite
	}
	return name
}
