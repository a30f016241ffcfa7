package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/de-tools/report-atlas/pkg/store/jsondoc"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	LoaderType = "rest"

	OptionMethod   = "method"
	OptionBody     = "body"
	OptionDataPath = "data_path"
	// OptionHeaderPrefix marks request headers, e.g. `header.Authorization`.
	OptionHeaderPrefix = "header."
)

type Settings struct {
	RetryMax     int
	Timeout      time.Duration
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

type dataLoader struct {
	client *retryablehttp.Client
}

func NewLoader(settings Settings) loader.Loader {
	client := retryablehttp.NewClient()
	client.RetryMax = settings.RetryMax
	if settings.Timeout > 0 {
		client.HTTPClient.Timeout = settings.Timeout
	}
	if settings.RetryWaitMin > 0 {
		client.RetryWaitMin = settings.RetryWaitMin
	}
	if settings.RetryWaitMax > 0 {
		client.RetryWaitMax = settings.RetryWaitMax
	}
	client.Logger = nil
	return &dataLoader{client: client}
}

func (l *dataLoader) Load(
	ctx context.Context,
	q domain.ReportQuery,
	parent domain.BandData,
	params domain.Params,
) ([]domain.Row, error) {
	logger := zerolog.Ctx(ctx)

	if strings.TrimSpace(q.Script) == "" {
		return nil, domain.NewValidationError(q.Name, "rest query needs a url")
	}
	params = loader.WithParentFields(parent, params)

	target, err := loader.SubstituteParams(q.Name, strings.TrimSpace(q.Script), params, url.QueryEscape)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if raw := q.Option(OptionBody, ""); raw != "" {
		text, err := loader.SubstituteParams(q.Name, raw, params, nil)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(text)
	}

	method := strings.ToUpper(q.Option(OptionMethod, http.MethodGet))
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, domain.NewValidationError(q.Name, "invalid request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range q.Options {
		if name, ok := strings.CutPrefix(k, OptionHeaderPrefix); ok {
			req.Header.Set(name, v)
		}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Redacted(), err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn().Err(err).Str("query", q.Name).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s %s: unexpected status %d: %s",
			method, req.URL.Redacted(), resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	doc, err := jsondoc.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", q.Name, err)
	}
	rows, err := jsondoc.Rows(doc, q.Option(OptionDataPath, ""))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}

	logger.Debug().
		Str("query", q.Name).
		Str("method", method).
		Int("status", resp.StatusCode).
		Int("rows", len(rows)).
		Msg("rest request completed")

	return rows, nil
}
