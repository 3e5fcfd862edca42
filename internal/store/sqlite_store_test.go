package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tinypal/internal/model"
	"tinypal/internal/store"
)

func TestSQLiteStoreBasicFlow(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "tinypal.db")
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	exerciseTranscript(t, st)
}

func TestJSONStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "tinypal.json")
	st, err := store.NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	exerciseTranscript(t, st)

	msg := model.Message{ID: "msg_keep", ScreenID: "scr_2", ChildID: "kid", Role: model.RoleUser, Text: "still here", CreatedAt: time.Now().UTC()}
	if err := st.AddMessage(msg); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	reopened, err := store.NewJSONStore(path)
	if err != nil {
		t.Fatalf("reopen NewJSONStore() error = %v", err)
	}
	list, err := reopened.ListMessages("scr_2")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(list) != 1 || list[0].Text != "still here" {
		t.Fatalf("expected persisted message, got %+v", list)
	}
}

func TestNewByEngineRejectsUnknown(t *testing.T) {
	t.Parallel()

	if _, err := store.NewByEngine("redis", filepath.Join(t.TempDir(), "x")); !errors.Is(err, store.ErrUnsupportedEngine) {
		t.Fatalf("expected ErrUnsupportedEngine, got %v", err)
	}
	st, err := store.NewByEngine(" JSON ", filepath.Join(t.TempDir(), "x.json"))
	if err != nil {
		t.Fatalf("NewByEngine(json) error = %v", err)
	}
	if _, ok := st.(*store.JSONStore); !ok {
		t.Fatalf("expected *JSONStore, got %T", st)
	}
}

func TestDefaultPathFollowsEngine(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":            "data/tinypal.db",
		"sqlite":      "data/tinypal.db",
		" Json ":      "data/tinypal.json",
		"unsupported": "data/tinypal.db",
	}
	for engine, want := range cases {
		if got := store.DefaultPath(engine); got != want {
			t.Fatalf("DefaultPath(%q) = %q, want %q", engine, got, want)
		}
	}
}

func TestJSONStoreKeepsMemoryWhenWriteFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tinypal.json")
	st, err := store.NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	now := time.Now().UTC()
	for _, msg := range []model.Message{
		{ID: "msg_1", ScreenID: "scr_1", ChildID: "kid", Role: model.RoleUser, Text: "first", CreatedAt: now},
		{ID: "msg_2", ScreenID: "scr_2", ChildID: "kid", Role: model.RoleUser, Text: "second", CreatedAt: now},
	} {
		if err := st.AddMessage(msg); err != nil {
			t.Fatalf("AddMessage(%s) error = %v", msg.ID, err)
		}
	}

	// A directory at the temp path makes every write fail.
	if err := os.Mkdir(path+".tmp", 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	if err := st.DeleteMessages("scr_1"); err == nil {
		t.Fatalf("expected DeleteMessages to fail")
	}
	if err := st.AddMessage(model.Message{ID: "msg_3", ScreenID: "scr_2", Role: model.RoleUser, Text: "third", CreatedAt: now}); err == nil {
		t.Fatalf("expected AddMessage to fail")
	}

	first, err := st.ListMessages("scr_1")
	if err != nil || len(first) != 1 {
		t.Fatalf("expected scr_1 kept in memory, err=%v len=%d", err, len(first))
	}
	second, err := st.ListMessages("scr_2")
	if err != nil || len(second) != 1 {
		t.Fatalf("expected scr_2 unchanged in memory, err=%v len=%d", err, len(second))
	}

	reopened, err := store.NewJSONStore(path)
	if err != nil {
		t.Fatalf("reopen NewJSONStore() error = %v", err)
	}
	onDisk, err := reopened.ListMessages("scr_1")
	if err != nil || len(onDisk) != 1 {
		t.Fatalf("expected disk to match memory, err=%v len=%d", err, len(onDisk))
	}
}

func exerciseTranscript(t *testing.T, st store.Store) {
	t.Helper()

	now := time.Now().UTC()
	messages := []model.Message{
		{ID: "msg_1", ScreenID: "scr_1", ChildID: "kid", Role: model.RoleUser, Text: "Nutrition Tips", CreatedAt: now},
		{ID: "msg_2", ScreenID: "scr_1", ChildID: "kid", Role: model.RoleAssistant, Text: "Thanks! Tinu will answer this soon.", CreatedAt: now},
		{ID: "msg_3", ScreenID: "scr_other", ChildID: "kid", Role: model.RoleUser, Text: "other", CreatedAt: now},
	}
	for _, msg := range messages {
		if err := st.AddMessage(msg); err != nil {
			t.Fatalf("AddMessage(%s) error = %v", msg.ID, err)
		}
	}

	list, err := st.ListMessages("scr_1")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(list))
	}
	if list[0].ID != "msg_1" || list[1].ID != "msg_2" {
		t.Fatalf("expected insertion order, got %s, %s", list[0].ID, list[1].ID)
	}
	if !list[0].CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %v got %v", now, list[0].CreatedAt)
	}

	if err := st.DeleteMessages("scr_1"); err != nil {
		t.Fatalf("DeleteMessages() error = %v", err)
	}
	list, err = st.ListMessages("scr_1")
	if err != nil {
		t.Fatalf("ListMessages() after delete error = %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty transcript, got %d", len(list))
	}
	other, err := st.ListMessages("scr_other")
	if err != nil || len(other) != 1 {
		t.Fatalf("expected other screen untouched, err=%v len=%d", err, len(other))
	}
}
