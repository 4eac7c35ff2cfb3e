package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	ocr_space "github.com/ranghetto/go_ocr_space"
	appErrors "github.com/tripspend/trip_tracker/customErrors"
	"github.com/tripspend/trip_tracker/logging"
)

// processChatCompletions covers the OpenAI-compatible providers; OpenAI
// and OpenRouter share the same wire format.
func (d *Dispatcher) processChatCompletions(ctx context.Context, endpoint string, keyVar string, model string, imageData []byte) (FormData, error) {
	key, err := apiKeyFor(methodForKeyVar(keyVar))
	if err != nil {
		return FormData{}, err
	}

	payload := map[string]any{
		"model":      model,
		"max_tokens": 500,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": extractionPrompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL(imageData)}},
				},
			},
		},
	}

	respBody, err := d.postJSON(ctx, endpoint, payload, map[string]string{
		"Authorization": "Bearer " + key,
	})
	if err != nil {
		return FormData{}, err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || len(parsed.Choices) == 0 {
		return FormData{}, appErrors.New(appErrors.ErrUpstream, "malformed provider response")
	}

	return parseModelJSON(parsed.Choices[0].Message.Content)
}

func (d *Dispatcher) processClaude(ctx context.Context, imageData []byte) (FormData, error) {
	key, err := apiKeyFor(MethodClaude)
	if err != nil {
		return FormData{}, err
	}

	payload := map[string]any{
		"model":      "claude-3-5-haiku-latest",
		"max_tokens": 500,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type": "image",
						"source": map[string]any{
							"type":       "base64",
							"media_type": http.DetectContentType(imageData),
							"data":       base64.StdEncoding.EncodeToString(imageData),
						},
					},
					{"type": "text", "text": extractionPrompt},
				},
			},
		},
	}

	respBody, err := d.postJSON(ctx, "https://api.anthropic.com/v1/messages", payload, map[string]string{
		"x-api-key":         key,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return FormData{}, err
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || len(parsed.Content) == 0 {
		return FormData{}, appErrors.New(appErrors.ErrUpstream, "malformed provider response")
	}

	return parseModelJSON(parsed.Content[0].Text)
}

func (d *Dispatcher) processGemini(ctx context.Context, imageData []byte) (FormData, error) {
	key, err := apiKeyFor(MethodGemini)
	if err != nil {
		return FormData{}, err
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{"text": extractionPrompt},
					{
						"inline_data": map[string]any{
							"mime_type": http.DetectContentType(imageData),
							"data":      base64.StdEncoding.EncodeToString(imageData),
						},
					},
				},
			},
		},
	}

	endpoint := "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent?key=" + key
	respBody, err := d.postJSON(ctx, endpoint, payload, nil)
	if err != nil {
		return FormData{}, err
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return FormData{}, appErrors.New(appErrors.ErrUpstream, "malformed provider response")
	}

	return parseModelJSON(parsed.Candidates[0].Content.Parts[0].Text)
}

// processOCRSpace uses the OCR.space API, which returns plain text; the
// fields are recovered with the same normalization the original applied
// to raw scans.
func (d *Dispatcher) processOCRSpace(ctx context.Context, imageData []byte) (FormData, error) {
	key, err := apiKeyFor(MethodOCRSpace)
	if err != nil {
		return FormData{}, err
	}

	config := ocr_space.InitConfig(key, "eng", ocr_space.OCREngine2)
	result, err := config.ParseFromBase64(dataURL(imageData))
	if err != nil {
		return FormData{}, appErrors.New(appErrors.ErrUpstream, "ocrspace request failed: %v", err)
	}

	rawText := result.JustText()
	if strings.TrimSpace(rawText) == "" {
		return FormData{}, appErrors.New(appErrors.ErrUpstream, "ocrspace returned no text")
	}
	return normalizeRawText(rawText), nil
}

func (d *Dispatcher) postJSON(ctx context.Context, endpoint string, payload any, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, appErrors.New(appErrors.ErrUpstream, "provider unreachable: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, appErrors.New(appErrors.ErrUpstream, "failed to read provider response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		logging.Logger.Warnf("OCR provider returned status %d: %s", resp.StatusCode, respBody)
		return nil, appErrors.New(appErrors.ErrUpstream, "provider returned status %d", resp.StatusCode)
	}
	return respBody, nil
}

func methodForKeyVar(keyVar string) string {
	if keyVar == "OPENROUTER_API_KEY" {
		return MethodOpenRouter
	}
	return MethodOpenAI
}

func decodeLooseFields(jsonStr string) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func pickString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := raw[key].(string); ok && value != "" {
			return value
		}
		if value, ok := raw[key].(float64); ok {
			return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", value), "0"), ".")
		}
	}
	return ""
}

func pickStrings(raw map[string]any, keys ...string) []string {
	for _, key := range keys {
		values, ok := raw[key].([]any)
		if !ok {
			continue
		}
		var items []string
		for _, value := range values {
			switch v := value.(type) {
			case string:
				items = append(items, v)
			case map[string]any:
				if name := pickString(v, "name", "description", "item"); name != "" {
					items = append(items, name)
				}
			}
		}
		return items
	}
	return nil
}
