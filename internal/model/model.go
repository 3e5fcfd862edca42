package model

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 form the upstream expects for questionnaire answers.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type DykCard struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	ImageURL   *string `json:"image_url"`
	Heading    *string `json:"heading"`
	SubHeading *string `json:"sub_heading"`
}

type FlashCard struct {
	ID         string  `json:"id"`
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	ImageURL   *string `json:"image_url"`
	Heading    *string `json:"heading"`
	SubHeading *string `json:"sub_heading"`
}

type PersonalizedAnswers struct {
	DykCards   []DykCard       `json:"dyk_cards"`
	FlashCards []FlashCard     `json:"flash_cards"`
	Title      json.RawMessage `json:"title,omitempty"`
	Subtitle   json.RawMessage `json:"subtitle,omitempty"`
	CTA        json.RawMessage `json:"cta,omitempty"`
}

// TinuCard is an assistant card. Fields other than title, content and
// image_url are carried in Extra exactly as the upstream sent them, as is
// a title or content the upstream sent as null.
type TinuCard struct {
	Title    *string
	Content  *string
	ImageURL *string
	Extra    map[string]json.RawMessage
}

func (c TinuCard) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Extra)+3)
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.Title != nil {
		raw, err := json.Marshal(*c.Title)
		if err != nil {
			return nil, err
		}
		out["title"] = raw
	}
	if c.Content != nil {
		raw, err := json.Marshal(*c.Content)
		if err != nil {
			return nil, err
		}
		out["content"] = raw
	}
	imageURL, err := json.Marshal(c.ImageURL)
	if err != nil {
		return nil, err
	}
	out["image_url"] = imageURL

	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(out[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Chip is an assistant suggestion chip kept in whatever JSON shape the
// upstream sent.
type Chip json.RawMessage

func (c Chip) MarshalJSON() ([]byte, error) {
	if len(c) == 0 {
		return []byte("null"), nil
	}
	return c, nil
}

func (c *Chip) UnmarshalJSON(data []byte) error {
	*c = append((*c)[:0], data...)
	return nil
}

// DisplayText resolves text ?? label ?? raw value.
func (c Chip) DisplayText() string {
	raw := bytes.TrimSpace(c)
	if len(raw) == 0 {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil && fields != nil {
		if text, ok := fields["text"].(string); ok && text != "" {
			return text
		}
		if label, ok := fields["label"].(string); ok && label != "" {
			return label
		}
		return string(raw)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

type AssistantActivation struct {
	Cards []TinuCard `json:"cards"`
	Chips []Chip     `json:"chips"`
}

type QuestionResponse struct {
	QuestionID        string    `json:"question_id"`
	SelectedChoiceIDs []string  `json:"selected_choice_ids"`
	OpenResponseText  string    `json:"open_response_text"`
	Timestamp         time.Time `json:"timestamp"`
}

func (r QuestionResponse) MarshalJSON() ([]byte, error) {
	choices := r.SelectedChoiceIDs
	if choices == nil {
		choices = []string{}
	}
	return json.Marshal(struct {
		QuestionID        string   `json:"question_id"`
		SelectedChoiceIDs []string `json:"selected_choice_ids"`
		OpenResponseText  string   `json:"open_response_text"`
		Timestamp         string   `json:"timestamp"`
	}{
		QuestionID:        r.QuestionID,
		SelectedChoiceIDs: choices,
		OpenResponseText:  r.OpenResponseText,
		Timestamp:         r.Timestamp.UTC().Format(TimestampLayout),
	})
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	ScreenID  string    `json:"screen_id"`
	ChildID   string    `json:"child_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type HomeEntry struct {
	Screen string `json:"screen"`
	Label  string `json:"label"`
}

type HomeMenu struct {
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle"`
	Entries  []HomeEntry `json:"entries"`
	Features []string    `json:"features"`
}
