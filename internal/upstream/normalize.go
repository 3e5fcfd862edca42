package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tinypal/internal/model"
)

const (
	defaultDykTitle      = "Did You Know"
	defaultFlashQuestion = "Question"
)

type rawPersonalizedAnswers struct {
	DykCards   json.RawMessage `json:"dyk_cards"`
	FlashCards json.RawMessage `json:"flash_cards"`
	Title      json.RawMessage `json:"title"`
	Subtitle   json.RawMessage `json:"subtitle"`
	CTA        json.RawMessage `json:"cta"`
}

// rawCard covers both dyk_cards and flash_cards entries.
type rawCard struct {
	ID         json.RawMessage `json:"id"`
	Title      *string         `json:"title"`
	Heading    *string         `json:"heading"`
	SubHeading *string         `json:"sub_heading"`
	Content    *string         `json:"content"`
	ImageURL   *string         `json:"image_url"`
}

type rawAssistantActivation struct {
	Cards json.RawMessage `json:"cards"`
	Chips json.RawMessage `json:"chips"`
}

// Normalizer maps upstream payloads onto the view-model shapes. Missing
// arrays become empty, missing scalars fall back per field, and values of an
// unexpected JSON type are reported as MalformedResponseError.
type Normalizer struct {
	images ImageResolver
	ids    *idGenerator
}

func NewNormalizer(images ImageResolver) *Normalizer {
	return &Normalizer{
		images: images,
		ids:    newIDGenerator(time.Now()),
	}
}

func (n *Normalizer) PersonalizedAnswers(raw []byte) (model.PersonalizedAnswers, error) {
	var payload rawPersonalizedAnswers
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.PersonalizedAnswers{}, &MalformedResponseError{Err: err}
	}

	var dykRaw []rawCard
	if err := decodeArray(payload.DykCards, &dykRaw); err != nil {
		return model.PersonalizedAnswers{}, &MalformedResponseError{Field: "dyk_cards", Err: err}
	}
	var flashRaw []rawCard
	if err := decodeArray(payload.FlashCards, &flashRaw); err != nil {
		return model.PersonalizedAnswers{}, &MalformedResponseError{Field: "flash_cards", Err: err}
	}

	result := model.PersonalizedAnswers{
		DykCards:   make([]model.DykCard, 0, len(dykRaw)),
		FlashCards: make([]model.FlashCard, 0, len(flashRaw)),
		Title:      passthrough(payload.Title),
		Subtitle:   passthrough(payload.Subtitle),
		CTA:        passthrough(payload.CTA),
	}
	for i, card := range dykRaw {
		id, err := n.cardID(card.ID, "dyk")
		if err != nil {
			return model.PersonalizedAnswers{}, &MalformedResponseError{Field: fmt.Sprintf("dyk_cards[%d].id", i), Err: err}
		}
		result.DykCards = append(result.DykCards, model.DykCard{
			ID:         id,
			Title:      firstNonEmpty(defaultDykTitle, card.Title, card.Heading),
			Content:    valueOrEmpty(card.Content),
			ImageURL:   n.images.Resolve(card.ImageURL),
			Heading:    card.Heading,
			SubHeading: card.SubHeading,
		})
	}
	for i, card := range flashRaw {
		id, err := n.cardID(card.ID, "flash")
		if err != nil {
			return model.PersonalizedAnswers{}, &MalformedResponseError{Field: fmt.Sprintf("flash_cards[%d].id", i), Err: err}
		}
		result.FlashCards = append(result.FlashCards, model.FlashCard{
			ID:         id,
			Question:   firstNonEmpty(defaultFlashQuestion, card.Title, card.Heading),
			Answer:     valueOrEmpty(card.Content),
			ImageURL:   n.images.Resolve(card.ImageURL),
			Heading:    card.Heading,
			SubHeading: card.SubHeading,
		})
	}
	return result, nil
}

func (n *Normalizer) AssistantActivation(raw []byte) (model.AssistantActivation, error) {
	var payload rawAssistantActivation
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.AssistantActivation{}, &MalformedResponseError{Err: err}
	}

	var cardsRaw []map[string]json.RawMessage
	if err := decodeArray(payload.Cards, &cardsRaw); err != nil {
		return model.AssistantActivation{}, &MalformedResponseError{Field: "cards", Err: err}
	}
	var chipsRaw []json.RawMessage
	if err := decodeArray(payload.Chips, &chipsRaw); err != nil {
		return model.AssistantActivation{}, &MalformedResponseError{Field: "chips", Err: err}
	}

	result := model.AssistantActivation{
		Cards: make([]model.TinuCard, 0, len(cardsRaw)),
		Chips: make([]model.Chip, 0, len(chipsRaw)),
	}
	for i, fields := range cardsRaw {
		card, err := n.tinuCard(fields)
		if err != nil {
			var field string
			var fe *fieldError
			if errors.As(err, &fe) {
				field = fmt.Sprintf("cards[%d].%s", i, fe.field)
			}
			return model.AssistantActivation{}, &MalformedResponseError{Field: field, Err: err}
		}
		result.Cards = append(result.Cards, card)
	}
	for _, chip := range chipsRaw {
		result.Chips = append(result.Chips, model.Chip(bytes.Clone(chip)))
	}
	return result, nil
}

func (n *Normalizer) tinuCard(fields map[string]json.RawMessage) (model.TinuCard, error) {
	card := model.TinuCard{Extra: make(map[string]json.RawMessage, len(fields))}
	for key, value := range fields {
		switch key {
		case "title", "content", "image_url":
			s, err := optionalString(value)
			if err != nil {
				return model.TinuCard{}, &fieldError{field: key, err: err}
			}
			switch {
			case key != "image_url" && s == nil:
				// explicit null title or content is echoed back as null
				card.Extra[key] = json.RawMessage("null")
			case key == "title":
				card.Title = s
			case key == "content":
				card.Content = s
			default:
				card.ImageURL = n.images.Resolve(s)
			}
		default:
			card.Extra[key] = value
		}
	}
	return card, nil
}

// cardID keeps an upstream string or numeric id and mints one otherwise.
func (n *Normalizer) cardID(raw json.RawMessage, kind string) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return n.ids.next(kind), nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		if s == "" {
			return n.ids.next(kind), nil
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var num json.Number
		if err := json.Unmarshal(trimmed, &num); err != nil {
			return "", err
		}
		return num.String(), nil
	default:
		return "", fmt.Errorf("id must be a string or number, got %s", truncateText(string(trimmed), 40))
	}
}

type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string {
	return e.field + ": " + e.err.Error()
}

func (e *fieldError) Unwrap() error {
	return e.err
}

func decodeArray(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] != '[' {
		return fmt.Errorf("expected array, got %s", truncateText(string(trimmed), 40))
	}
	return json.Unmarshal(trimmed, dst)
}

func optionalString(raw json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("expected string, got %s", truncateText(string(trimmed), 40))
	}
	return &s, nil
}

func passthrough(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return bytes.Clone(raw)
}

func firstNonEmpty(fallback string, values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return fallback
}

func valueOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
