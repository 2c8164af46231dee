package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

var (
	ErrEntryNotFound    = errors.New("journal entry not found")
	ErrInvalidRequestID = errors.New("request id is empty")
)

const (
	defaultKeyPrefix     = "router:journal:"
	defaultEntryTTL      = 7 * 24 * time.Hour
	maxResponseSizeBytes = 2 << 20
)

// UpstashOption customizes UpstashJournal.
type UpstashOption func(*UpstashJournal)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(s *UpstashJournal) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) UpstashOption {
	return func(s *UpstashJournal) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(s *UpstashJournal) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashJournal stores entries in Upstash Redis through its REST API.
type UpstashJournal struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

var _ contractx.Journal = (*UpstashJournal)(nil)

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	TTL     time.Duration `envconfig:"TTL" split_words:"true" default:"168h"`
}

func NewUpstashJournal(cfg UpstashConfig, opts ...UpstashOption) (*UpstashJournal, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultEntryTTL
	}

	j := &UpstashJournal{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}

	if j.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return j, nil
}

func (j *UpstashJournal) Record(ctx context.Context, entry contractx.JournalEntry) error {
	key, err := j.key(entry.RequestID)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	} else {
		entry.CreatedAt = entry.CreatedAt.UTC()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if j.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(j.ttl))
	}

	if _, err := j.exec(ctx, cmd); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrJournal, err)
	}
	return nil
}

func (j *UpstashJournal) Load(ctx context.Context, requestID string) (*contractx.JournalEntry, error) {
	key, err := j.key(requestID)
	if err != nil {
		return nil, err
	}

	resp, err := j.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrEntryNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode journal payload: %w", err)
	}

	var entry contractx.JournalEntry
	if err := json.Unmarshal([]byte(encoded), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal journal entry: %w", err)
	}
	return &entry, nil
}

func (j *UpstashJournal) key(requestID string) (string, error) {
	if strings.TrimSpace(requestID) == "" {
		return "", ErrInvalidRequestID
	}
	return strings.TrimSpace(j.keyPrefix) + requestID, nil
}

func (j *UpstashJournal) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if j == nil {
		return nil, errors.New("nil journal")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+j.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
