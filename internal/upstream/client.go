package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tinypal/internal/fallback"
	"tinypal/internal/model"
)

const (
	DefaultBaseURL  = "https://genai-images-4ea9c0ca90c8.herokuapp.com"
	DefaultModuleID = "1"
	DefaultTimeout  = 10 * time.Second

	PersonalizedAnswersPath = "/p13n_answers"
	ActivateAssistantPath   = "/activate_tinu"
)

// Failure reasons reported on request_failed events.
const (
	ReasonNetwork   = "network"
	ReasonServer    = "server_error"
	ReasonMalformed = "malformed_response"
	ReasonCanceled  = "canceled"
)

type Config struct {
	BaseURL    string
	ModuleID   string
	Timeout    time.Duration
	Logger     *slog.Logger
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	moduleID   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	images     ImageResolver
	normalizer *Normalizer
}

type PersonalizedAnswersRequest struct {
	ModuleID  string                   `json:"module_id"`
	ParentID  string                   `json:"parent_id"`
	ChildID   string                   `json:"child_id"`
	Responses []model.QuestionResponse `json:"responses"`
}

type ActivateAssistantRequest struct {
	ChildID  string `json:"child_id"`
	Context  string `json:"context"`
	ModuleID string `json:"module_id"`
	Topic    string `json:"topic"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: expected http(s)://host", baseURL)
	}
	moduleID := strings.TrimSpace(cfg.ModuleID)
	if moduleID == "" {
		moduleID = DefaultModuleID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	images := NewImageResolver(baseURL)
	return &Client{
		baseURL:    baseURL,
		moduleID:   moduleID,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		logger:     logger,
		images:     images,
		normalizer: NewNormalizer(images),
	}, nil
}

func (c *Client) ModuleID() string {
	return c.moduleID
}

func (c *Client) Images() ImageResolver {
	return c.images
}

// FetchPersonalizedAnswers posts the questionnaire responses and returns the
// normalized cards. When the upstream cannot be reached the fallback content
// is returned instead; a non-2xx answer is returned as *ServerError.
func (c *Client) FetchPersonalizedAnswers(ctx context.Context, parentID string, childID string, responses []model.QuestionResponse) (model.PersonalizedAnswers, error) {
	if responses == nil {
		responses = []model.QuestionResponse{}
	}
	body := PersonalizedAnswersRequest{
		ModuleID:  c.moduleID,
		ParentID:  parentID,
		ChildID:   childID,
		Responses: responses,
	}

	var result model.PersonalizedAnswers
	err := c.post(ctx, PersonalizedAnswersPath, body, func(raw []byte) error {
		var err error
		result, err = c.normalizer.PersonalizedAnswers(raw)
		return err
	})
	if errors.Is(err, ErrNetworkUnavailable) {
		return fallback.PersonalizedAnswers(), nil
	}
	if err != nil {
		return model.PersonalizedAnswers{}, err
	}
	return result, nil
}

// ActivateAssistant asks the upstream for assistant cards and chips. An empty
// moduleID uses the client's configured module.
func (c *Client) ActivateAssistant(ctx context.Context, childID string, assistantContext string, moduleID string, topic string) (model.AssistantActivation, error) {
	if strings.TrimSpace(moduleID) == "" {
		moduleID = c.moduleID
	}
	body := ActivateAssistantRequest{
		ChildID:  childID,
		Context:  assistantContext,
		ModuleID: moduleID,
		Topic:    topic,
	}

	var result model.AssistantActivation
	err := c.post(ctx, ActivateAssistantPath, body, func(raw []byte) error {
		var err error
		result, err = c.normalizer.AssistantActivation(raw)
		return err
	})
	if errors.Is(err, ErrNetworkUnavailable) {
		return fallback.AssistantActivation(), nil
	}
	if err != nil {
		return model.AssistantActivation{}, err
	}
	return result, nil
}

// post issues a single attempt. A transport failure with no usable response is
// reported as ErrNetworkUnavailable unless the caller's own context ended first.
func (c *Client) post(ctx context.Context, path string, payload any, decode func([]byte) error) error {
	requestID := uuid.NewString()
	logger := c.logger.With("endpoint", path, "request_id", requestID)
	start := time.Now()
	logger.Info("request_started")

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	transportFailed := func(err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warn("request_failed", "reason", ReasonCanceled, "duration", time.Since(start), "error", err)
			return ctxErr
		}
		logger.Warn("request_failed", "reason", ReasonNetwork, "duration", time.Since(start), "error", err)
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFailed(err)
	}
	defer resp.Body.Close()

	// A received status is never replaced by fallback content, even when the
	// body that follows it is cut short.
	respBody, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		args := []any{"reason", ReasonServer, "status", resp.StatusCode, "duration", time.Since(start)}
		if readErr != nil {
			args = append(args, "read_error", readErr)
		}
		logger.Warn("request_failed", args...)
		return &ServerError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	if readErr != nil {
		return transportFailed(readErr)
	}

	if err := decode(respBody); err != nil {
		var malformed *MalformedResponseError
		if errors.As(err, &malformed) {
			malformed.Endpoint = path
		}
		logger.Warn("request_failed", "reason", ReasonMalformed, "status", resp.StatusCode, "duration", time.Since(start), "error", err)
		return err
	}

	logger.Info("request_succeeded", "status", resp.StatusCode, "duration", time.Since(start))
	return nil
}
