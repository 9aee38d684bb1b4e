package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/pkg/formatting"
	"github.com/ledgerworks/conveyor/pkg/lifecycle"
)

// Extractor is the model call surface the pipeline consumes. Implemented by
// Client; substituted with fakes in tests.
type Extractor interface {
	Classify(ctx context.Context, document []byte, prompt string) (*Classification, error)
	Extract(ctx context.Context, document []byte, prompt string) (*Result, error)
}

// Client calls Gemini for document classification and structured extraction.
type Client struct {
	config config.ExtractionConfig
	logger *slog.Logger
	client *genai.Client
}

// NewClient creates a Gemini-backed extraction client.
func NewClient(ctx context.Context, cfg config.ExtractionConfig, logger *slog.Logger) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		config: cfg,
		logger: logger.With("system", "extraction"),
		client: client,
	}, nil
}

// Close releases the underlying API connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Start registers a shutdown hook that closes the model connection once
// in-flight work has drained.
func (c *Client) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting extraction system", "model", c.config.Model)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := c.Close(); err != nil {
			c.logger.Error("failed to close extraction client", "error", err)
			return
		}
		c.logger.Info("extraction client closed")
	})

	return nil
}

// Classify sends the leading pages of a document to the model and returns
// the detected document type.
func (c *Client) Classify(ctx context.Context, document []byte, prompt string) (*Classification, error) {
	raw, err := c.generate(ctx, document, prompt)
	if err != nil {
		return nil, err
	}

	classification, err := formatting.Parse[Classification](raw)
	if err != nil {
		return nil, fmt.Errorf("malformed classification response: %w", err)
	}
	return &classification, nil
}

// Extract sends one chunk's PDF payload to the model and returns the parsed
// structured result.
func (c *Client) Extract(ctx context.Context, document []byte, prompt string) (*Result, error) {
	raw, err := c.generate(ctx, document, prompt)
	if err != nil {
		return nil, err
	}

	result, err := formatting.Parse[Result](raw)
	if err != nil {
		return nil, fmt.Errorf("malformed extraction response: %w", err)
	}
	return &result, nil
}

func (c *Client) generate(ctx context.Context, document []byte, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.config.Model)
	model.SetTemperature(float32(c.config.Temperature))
	model.ResponseMIMEType = "application/json"

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeoutDuration())
	defer cancel()

	response, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: document},
		genai.Text(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}

	raw, err := responseText(response)
	if err != nil {
		return "", err
	}

	c.logger.Debug("model response received",
		"model", c.config.Model,
		"documentBytes", len(document),
		"responseChars", len(raw),
	)
	return raw, nil
}

func responseText(response *genai.GenerateContentResponse) (string, error) {
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("model returned no candidates")
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if s, ok := part.(genai.Text); ok {
			text.WriteString(string(s))
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("model returned no text content")
	}
	return text.String(), nil
}
