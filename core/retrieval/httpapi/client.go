// Package httpapi retrieves supporting context from an HTTP search endpoint.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const searchPath = "/api/search-documents"

type Client struct {
	baseURL string

	httpClient *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("retrieval base url is required")
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}, nil
}

type searchRequest struct {
	Query   string `json:"query"`
	ScopeID string `json:"scopeId"`
	TopK    int    `json:"topK"`
}

type searchResponse struct {
	Results []struct {
		Content string `json:"content"`
	} `json:"results"`
}

// Retrieve posts the query to the search endpoint and joins the ranked
// snippet contents. Deadlines are the caller's responsibility via ctx.
func (c *Client) Retrieve(ctx context.Context, query, scopeID string, topK int) (string, error) {
	ctx, span := tracer.Start(ctx, "retrieve context")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.scope_id", scopeID),
		attribute.Int("request.top_k", topK),
	)

	requestBodyBytes, err := json.Marshal(searchRequest{Query: query, ScopeID: scopeID, TopK: topK})
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+searchPath, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, readErr := io.ReadAll(resp.Body); readErr == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
		span.RecordError(err)
		return "", err
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("error unmarshalling response: %w", err)
	}

	contextParts := []string{}
	for _, result := range body.Results {
		if result.Content != "" {
			contextParts = append(contextParts, result.Content)
		}
	}

	span.SetAttributes(attribute.Int("response.snippets", len(contextParts)))
	return strings.Join(contextParts, "\n\n"), nil
}
