package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
)

const (
	DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"

	systemPrompt = `You are a paid-advertising analyst. Given campaign data as JSON, reply with
a JSON array of at most 3 recommendations. Each item has "title", "message",
"priority" ("high", "medium" or "low") and "suggestedActions" (array of snake_case
action names). Reply with the JSON array only.`
)

// ModelInvoker is the part of the Bedrock runtime client the generator uses.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type BedrockGenerator struct {
	client    ModelInvoker
	modelID   string
	maxTokens int
}

// NewBedrockGenerator loads the default AWS credential chain for region.
func NewBedrockGenerator(ctx context.Context, region, modelID string) (*BedrockGenerator, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewBedrockGeneratorWithClient(bedrockruntime.NewFromConfig(cfg), modelID), nil
}

func NewBedrockGeneratorWithClient(client ModelInvoker, modelID string) *BedrockGenerator {
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &BedrockGenerator{client: client, modelID: modelID, maxTokens: 1024}
}

type bedrockMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature"`
}

type bedrockResponse struct {
	Content []contentBlock `json:"content"`
}

func (g *BedrockGenerator) Generate(ctx context.Context, data CampaignData) ([]Recommendation, error) {
	campaignJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal campaign data: %w", err)
	}

	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        g.maxTokens,
		System:           systemPrompt,
		Messages: []bedrockMessage{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: string(campaignJSON)}},
		}},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("invoke model (%s): %w", apiErr.ErrorCode(), err)
		}
		return nil, fmt.Errorf("invoke model: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return ParseRecommendations(text.String())
}
