package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/risiti/risiti-backend/errors"
	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/types"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	groqBaseURL   = "https://api.groq.com/openai/v1"

	extractionTool    = "save_extracted_receipt_data"
	extractionTimeout = 120 * time.Second
)

const extractionSystemPrompt = `You are an expert in Tanzanian tax compliance (Income Tax/VAT Acts). ` +
	`Analyze receipts using ` + extractionTool + ` and provide tax analysis meeting TRA audit standards. ` +
	`Extract the supplier TIN, VAT status, tax breakdown and TRA invoice markers. ` +
	`18% VAT is deductible only from registered suppliers; apply WHT rules for services over 100k TZS/month; ` +
	`cite relevant law sections, separate compliance from deductibility, and flag missing TINs or unregistered vendors.`

// Extractor converts raw receipt content into a structured field set. The
// pipeline treats extraction as an opaque call; this is the seam tests mock.
type Extractor interface {
	Extract(ctx context.Context, content string, isImage bool, cfg *types.InstanceConfig) (*types.ExtractionResult, error)
}

// LLMExtractor implements Extractor against an OpenAI-compatible chat
// completions API, using tool calling to force a structured result.
type LLMExtractor struct {
	log        *zap.SugaredLogger
	httpClient *http.Client
	// baseURLOverride routes calls to a test server when non-empty.
	baseURLOverride string
}

// NewLLMExtractor creates an extractor with a production HTTP client.
func NewLLMExtractor() *LLMExtractor {
	return &LLMExtractor{
		log:        logger.GetLogger().Named("extractor"),
		httpClient: &http.Client{Timeout: extractionTimeout},
	}
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Tools      []chatTool    `json:"tools"`
	ToolChoice string        `json:"tool_choice"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// extractionSchema is the JSON schema of the tool the model is required to
// call. Field names line up with types.ExtractionResult.
var extractionSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "vendor_name": {"type": "string"},
    "vendor_tin": {"type": "string"},
    "vendor_phone": {"type": "string"},
    "vrn": {"type": "string", "description": "The VAT Registration Number (VRN)."},
    "receipt_date": {"type": "string", "description": "YYYY-MM-DD format."},
    "receipt_number": {"type": "string"},
    "uin": {"type": "string"},
    "total_amount": {"type": "number"},
    "vat_amount": {"type": "number"},
    "receipt_verification_code": {"type": "string"},
    "customer_name": {"type": "string"},
    "customer_id_type": {"type": "string"},
    "customer_id": {"type": "string"},
    "llm_extracted_description": {"type": "string", "description": "A concise one-sentence summary of the purchase."},
    "llm_tax_analysis": {"type": "string", "description": "Brief expert analysis of tax obligations under Tanzanian law."}
  },
  "required": ["vendor_name", "receipt_date", "total_amount", "llm_extracted_description", "llm_tax_analysis"]
}`)

// Extract calls the configured provider and decodes the tool-call arguments
// into a typed result. content is receipt text, or a stored image path when
// isImage is set.
func (e *LLMExtractor) Extract(ctx context.Context, content string, isImage bool, cfg *types.InstanceConfig) (*types.ExtractionResult, error) {
	if cfg.LLMAPIKey == "" {
		return nil, apperrors.NotConfigured("extraction API key is not configured")
	}

	model := e.pickModel(cfg.LLMProvider, isImage)
	messages := []chatMessage{{Role: "system", Content: extractionSystemPrompt}}

	if isImage {
		encoded, err := encodeImage(content)
		if err != nil {
			return nil, fmt.Errorf("failed to read receipt photo: %w", err)
		}
		messages = append(messages, chatMessage{
			Role: "user",
			Content: []map[string]interface{}{
				{"type": "text", "text": "Please analyze this receipt image, extract its data, and provide a tax analysis."},
				{"type": "image_url", "image_url": map[string]string{
					"url": "data:image/jpeg;base64," + encoded,
				}},
			},
		})
	} else {
		messages = append(messages, chatMessage{
			Role:    "user",
			Content: "Please analyze this receipt text, extract its data, and provide a tax analysis:\n\n" + content,
		})
	}

	reqBody := chatRequest{
		Model:    model,
		Messages: messages,
		Tools: []chatTool{{
			Type: "function",
			Function: toolFunction{
				Name:        extractionTool,
				Description: "Saves the extracted key information from a receipt document.",
				Parameters:  extractionSchema,
			},
		}},
		ToolChoice: "auto",
	}

	e.log.Debugw("Calling extraction model", "provider", cfg.LLMProvider, "model", model, "isImage", isImage)
	raw, err := e.call(ctx, cfg, reqBody)
	if err != nil {
		return nil, err
	}

	var result types.ExtractionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperrors.ExtractionFailed("extraction produced malformed arguments", err.Error())
	}
	result.Raw = raw

	e.log.Infow("Extraction succeeded", "vendor", result.VendorName, "total", result.TotalAmount)
	return &result, nil
}

func (e *LLMExtractor) call(ctx context.Context, cfg *types.InstanceConfig, reqBody chatRequest) (json.RawMessage, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL(cfg.LLMProvider)+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.LLMAPIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ExtractionFailed(
			"extraction provider returned an error",
			fmt.Sprintf("status %d", resp.StatusCode))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	if len(chatResp.Choices) == 0 || len(chatResp.Choices[0].Message.ToolCalls) == 0 {
		return nil, apperrors.ExtractionFailed("extraction model did not call the required tool", "")
	}
	toolCall := chatResp.Choices[0].Message.ToolCalls[0]
	if toolCall.Function.Name != extractionTool {
		return nil, apperrors.ExtractionFailed(
			"extraction model called an unexpected tool", toolCall.Function.Name)
	}
	return json.RawMessage(toolCall.Function.Arguments), nil
}

func (e *LLMExtractor) baseURL(provider string) string {
	if e.baseURLOverride != "" {
		return e.baseURLOverride
	}
	if provider == "groq" {
		return groqBaseURL
	}
	return openAIBaseURL
}

func (e *LLMExtractor) pickModel(provider string, isImage bool) string {
	if provider == "groq" {
		if isImage {
			return "meta-llama/llama-4-scout-17b-16e-instruct"
		}
		return "llama-3.3-70b-versatile"
	}
	return "gpt-4o"
}

func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
