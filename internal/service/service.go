package service

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"tinypal/internal/catalog"
	"tinypal/internal/model"
	"tinypal/internal/store"
)

var (
	ErrInvalidScreen  = errors.New("unknown screen, expected did_you_know or flash_cards")
	ErrScreenNotFound = errors.New("screen session not found")
	ErrScreenClosed   = errors.New("screen was closed before the result arrived")
	ErrStaleResult    = errors.New("screen was reloaded before the result arrived")
	ErrMessageEmpty   = errors.New("message is empty after sanitising")
	ErrInvalidChip    = errors.New("chip index out of range")
)

const AssistantAcknowledgement = "Thanks! Tinu will answer this soon."

const (
	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusEmpty   = "empty"
)

// Upstream is the part of upstream.Client the service needs.
type Upstream interface {
	FetchPersonalizedAnswers(ctx context.Context, parentID string, childID string, responses []model.QuestionResponse) (model.PersonalizedAnswers, error)
	ActivateAssistant(ctx context.Context, childID string, assistantContext string, moduleID string, topic string) (model.AssistantActivation, error)
}

type Config struct {
	ParentID string
	ChildID  string
	ModuleID string
	Topic    string
	Logger   *slog.Logger
}

type OpenScreenRequest struct {
	Screen    string                   `json:"screen"`
	ParentID  string                   `json:"parent_id,omitempty"`
	ChildID   string                   `json:"child_id,omitempty"`
	Responses []model.QuestionResponse `json:"responses,omitempty"`
}

type SendMessageRequest struct {
	Text      string `json:"text,omitempty"`
	ChipIndex *int   `json:"chip_index,omitempty"`
}

// ScreenView is what the app renders for one open screen.
type ScreenView struct {
	ID               string                     `json:"id"`
	Screen           string                     `json:"screen"`
	Status           string                     `json:"status"`
	DykCards         []model.DykCard            `json:"dyk_cards,omitempty"`
	FlashCards       []model.FlashCard          `json:"flash_cards,omitempty"`
	Title            json.RawMessage            `json:"title,omitempty"`
	Subtitle         json.RawMessage            `json:"subtitle,omitempty"`
	CTA              json.RawMessage            `json:"cta,omitempty"`
	AssistantVisible bool                       `json:"assistant_visible"`
	Assistant        *model.AssistantActivation `json:"assistant,omitempty"`
}

type SendMessageResponse struct {
	Message model.Message `json:"message"`
	Reply   model.Message `json:"reply"`
}

type screenSession struct {
	id        string
	screen    string
	parentID  string
	childID   string
	responses []model.QuestionResponse

	closed        bool
	generation    uint64
	assistantGen  uint64
	view          ScreenView
	hasAssistant  bool
	assistantData model.AssistantActivation
}

type Service struct {
	store    store.Store
	upstream Upstream
	cfg      Config
	logger   *slog.Logger
	policy   *bluemonday.Policy
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*screenSession

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

func New(st store.Store, upstream Upstream, cfg Config) *Service {
	cfg.ParentID = strings.TrimSpace(cfg.ParentID)
	if cfg.ParentID == "" {
		cfg.ParentID = catalog.DefaultParentID
	}
	cfg.ChildID = strings.TrimSpace(cfg.ChildID)
	if cfg.ChildID == "" {
		cfg.ChildID = catalog.DefaultChildID
	}
	cfg.Topic = strings.TrimSpace(cfg.Topic)
	if cfg.Topic == "" {
		cfg.Topic = catalog.DefaultTopic
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    st,
		upstream: upstream,
		cfg:      cfg,
		logger:   logger,
		policy:   bluemonday.StrictPolicy(),
		now:      time.Now,
		sessions: make(map[string]*screenSession),
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (s *Service) Home() model.HomeMenu {
	return catalog.HomeMenu()
}

// OpenScreen registers a screen session and performs its first load. If the
// first load fails the session is discarded.
func (s *Service) OpenScreen(ctx context.Context, req OpenScreenRequest) (ScreenView, error) {
	screen := strings.TrimSpace(strings.ToLower(req.Screen))
	if !catalog.IsScreen(screen) {
		return ScreenView{}, ErrInvalidScreen
	}
	parentID := strings.TrimSpace(req.ParentID)
	if parentID == "" {
		parentID = s.cfg.ParentID
	}
	childID := strings.TrimSpace(req.ChildID)
	if childID == "" {
		childID = s.cfg.ChildID
	}
	responses := req.Responses
	if len(responses) == 0 {
		responses = catalog.DemoResponses()
	}

	sess := &screenSession{
		id:        s.newID("scr"),
		screen:    screen,
		parentID:  parentID,
		childID:   childID,
		responses: responses,
	}
	sess.view = ScreenView{ID: sess.id, Screen: screen, Status: StatusLoading}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	view, err := s.load(ctx, sess)
	if err != nil {
		s.mu.Lock()
		if !sess.closed {
			sess.closed = true
			delete(s.sessions, sess.id)
		}
		s.mu.Unlock()
		return ScreenView{}, err
	}
	return view, nil
}

// RefreshScreen reloads an open screen. On failure the previous view stays in place.
func (s *Service) RefreshScreen(ctx context.Context, id string) (ScreenView, error) {
	sess, err := s.session(id)
	if err != nil {
		return ScreenView{}, err
	}
	return s.load(ctx, sess)
}

func (s *Service) Screen(id string) (ScreenView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ScreenView{}, ErrScreenNotFound
	}
	return sess.snapshot(), nil
}

// CloseScreen drops the session. Loads still in flight for it are discarded
// when they complete.
func (s *Service) CloseScreen(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrScreenNotFound
	}
	sess.closed = true
	delete(s.sessions, id)
	return nil
}

func (s *Service) OpenAssistant(ctx context.Context, id string) (ScreenView, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ScreenView{}, ErrScreenNotFound
	}
	sess.assistantGen++
	gen := sess.assistantGen
	childID := sess.childID
	screen := sess.screen
	s.mu.Unlock()

	assistantContext, _ := catalog.AssistantContext(screen)
	activation, err := s.upstream.ActivateAssistant(ctx, childID, assistantContext, s.cfg.ModuleID, s.cfg.Topic)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.closed {
		s.logger.Info("assistant result discarded", "screen_id", id, "reason", "closed")
		return ScreenView{}, ErrScreenClosed
	}
	if sess.assistantGen != gen {
		s.logger.Info("assistant result discarded", "screen_id", id, "reason", "stale")
		return ScreenView{}, ErrStaleResult
	}
	if err != nil {
		return ScreenView{}, err
	}
	// The sheet is only shown once activation data is in hand.
	sess.view.AssistantVisible = true
	sess.hasAssistant = true
	sess.assistantData = activation
	return sess.snapshot(), nil
}

func (s *Service) CloseAssistant(id string) (ScreenView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ScreenView{}, ErrScreenNotFound
	}
	sess.assistantGen++
	sess.view.AssistantVisible = false
	sess.hasAssistant = false
	sess.assistantData = model.AssistantActivation{}
	return sess.snapshot(), nil
}

// SendMessage appends a user message and Tinu's acknowledgement to the
// screen's transcript. A chip index takes precedence over typed text.
func (s *Service) SendMessage(ctx context.Context, id string, req SendMessageRequest) (SendMessageResponse, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return SendMessageResponse{}, ErrScreenNotFound
	}
	childID := sess.childID
	var text string
	if req.ChipIndex != nil {
		idx := *req.ChipIndex
		if !sess.hasAssistant || idx < 0 || idx >= len(sess.assistantData.Chips) {
			s.mu.Unlock()
			return SendMessageResponse{}, ErrInvalidChip
		}
		text = sess.assistantData.Chips[idx].DisplayText()
	} else {
		text = s.sanitize(req.Text)
	}
	s.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return SendMessageResponse{}, ErrMessageEmpty
	}
	if err := ctx.Err(); err != nil {
		return SendMessageResponse{}, err
	}

	now := s.now().UTC()
	msg := model.Message{
		ID:        s.newID("msg"),
		ScreenID:  id,
		ChildID:   childID,
		Role:      model.RoleUser,
		Text:      text,
		CreatedAt: now,
	}
	if err := s.store.AddMessage(msg); err != nil {
		return SendMessageResponse{}, err
	}
	reply := model.Message{
		ID:        s.newID("msg"),
		ScreenID:  id,
		ChildID:   childID,
		Role:      model.RoleAssistant,
		Text:      AssistantAcknowledgement,
		CreatedAt: now,
	}
	if err := s.store.AddMessage(reply); err != nil {
		return SendMessageResponse{}, err
	}
	return SendMessageResponse{Message: msg, Reply: reply}, nil
}

// Transcript reads the stored conversation, which outlives the screen session.
func (s *Service) Transcript(id string) ([]model.Message, error) {
	return s.store.ListMessages(id)
}

func (s *Service) ClearTranscript(id string) error {
	return s.store.DeleteMessages(id)
}

// load runs one fetch for sess and applies the result only if no newer load
// started and the screen is still open.
func (s *Service) load(ctx context.Context, sess *screenSession) (ScreenView, error) {
	s.mu.Lock()
	if sess.closed {
		s.mu.Unlock()
		return ScreenView{}, ErrScreenNotFound
	}
	sess.generation++
	gen := sess.generation
	parentID, childID, responses := sess.parentID, sess.childID, sess.responses
	s.mu.Unlock()

	answers, err := s.upstream.FetchPersonalizedAnswers(ctx, parentID, childID, responses)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.closed {
		s.logger.Info("screen result discarded", "screen_id", sess.id, "reason", "closed")
		return ScreenView{}, ErrScreenClosed
	}
	if sess.generation != gen {
		s.logger.Info("screen result discarded", "screen_id", sess.id, "reason", "stale")
		return ScreenView{}, ErrStaleResult
	}
	if err != nil {
		s.logger.Warn("screen load failed", "screen_id", sess.id, "screen", sess.screen, "error", err)
		return ScreenView{}, err
	}
	sess.apply(answers)
	return sess.snapshot(), nil
}

func (sess *screenSession) apply(answers model.PersonalizedAnswers) {
	view := &sess.view
	view.DykCards = nil
	view.FlashCards = nil
	count := 0
	switch sess.screen {
	case catalog.ScreenDidYouKnow:
		view.DykCards = answers.DykCards
		count = len(answers.DykCards)
	case catalog.ScreenFlashCards:
		view.FlashCards = answers.FlashCards
		count = len(answers.FlashCards)
	}
	view.Title = answers.Title
	view.Subtitle = answers.Subtitle
	view.CTA = answers.CTA
	if count == 0 {
		view.Status = StatusEmpty
	} else {
		view.Status = StatusReady
	}
}

// snapshot copies the view so callers never share slices with the session.
func (sess *screenSession) snapshot() ScreenView {
	view := sess.view
	if view.DykCards != nil {
		view.DykCards = append([]model.DykCard(nil), view.DykCards...)
	}
	if view.FlashCards != nil {
		view.FlashCards = append([]model.FlashCard(nil), view.FlashCards...)
	}
	if sess.hasAssistant {
		activation := model.AssistantActivation{
			Cards: append([]model.TinuCard{}, sess.assistantData.Cards...),
			Chips: append([]model.Chip{}, sess.assistantData.Chips...),
		}
		view.Assistant = &activation
	}
	return view
}

func (s *Service) session(id string) (*screenSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrScreenNotFound
	}
	return sess, nil
}

// sanitize strips markup from typed chat text and returns plain text.
func (s *Service) sanitize(text string) string {
	return html.UnescapeString(s.policy.Sanitize(text))
}

func (s *Service) newID(prefix string) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return prefix + "_" + ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}
