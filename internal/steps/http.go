package steps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// StepTypeHTTP — тип HTTP шага.
	StepTypeHTTP = "http"

	// Значения по умолчанию.
	defaultHTTPTimeout = 30 * time.Second
)

// Ключи конфигурации HTTP шага.
const (
	configMethod     = "method"
	configURL        = "url"
	configHeaders    = "headers"
	configTimeoutSec = "timeout_sec"
)

// HTTPStep — шаг HTTP запроса.
//
// Выполняет запрос к внешнему API; статус >= 400 считается провалом.
//
// Конфигурация:
//
//	{
//	    "method": "GET",
//	    "url": "https://api.example.com/health",
//	    "headers": {"Authorization": "Bearer xxx"},
//	    "timeout_sec": 30
//	}
type HTTPStep struct {
	client *http.Client
}

// NewHTTPStep создаёт новый HTTPStep.
func NewHTTPStep() *HTTPStep {
	return &HTTPStep{
		client: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

// Type возвращает тип шага.
func (s *HTTPStep) Type() string {
	return StepTypeHTTP
}

// Execute выполняет HTTP запрос.
func (s *HTTPStep) Execute(ctx context.Context, req *Request) error {
	url, _ := req.Config[configURL].(string)
	if url == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}

	method, _ := req.Config[configMethod].(string)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	if sec, ok := toFloat(req.Config[configTimeoutSec]); ok && sec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sec*float64(time.Second)))
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if headers, ok := req.Config[configHeaders].(map[string]any); ok {
		for name, value := range headers {
			if v, ok := value.(string); ok {
				httpReq.Header.Set(name, v)
			}
		}
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
		}
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	// Тело не используется, но вычитывается для переиспользования соединения.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s %s returned %d", ErrHTTPStatus, method, url, resp.StatusCode)
	}

	return nil
}
