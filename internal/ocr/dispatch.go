// Package ocr forwards an uploaded receipt image to one of the external
// vision providers and maps the response onto the expense form fields.
// All text extraction happens upstream; this package only formats the
// request and renames the returned fields.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nfnt/resize"
	appErrors "github.com/tripspend/trip_tracker/customErrors"
	"github.com/tripspend/trip_tracker/logging"
)

const (
	MethodOpenAI     = "openai"
	MethodGemini     = "gemini"
	MethodClaude     = "claude"
	MethodOpenRouter = "openrouter"
	MethodOCRSpace   = "ocrspace"

	// Providers reject very large payloads; receipts get downscaled first.
	maxImageWidth = 1600
)

// FormData is the normalized field set the expense form auto-populates
// from. Unfilled fields stay empty and the user completes them manually.
type FormData struct {
	Date     string   `json:"date"`
	Vendor   string   `json:"vendor"`
	Location string   `json:"location"`
	Cost     string   `json:"cost"`
	Type     string   `json:"type"`
	Items    []string `json:"items"`
}

type Dispatcher struct {
	client *http.Client

	// Lightweight status endpoints probed by Test. OCR.space has no free
	// status endpoint (every request spends a parse), so it is absent and
	// only gets the key check.
	pingURLs map[string]string
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		client: &http.Client{Timeout: 45 * time.Second},
		pingURLs: map[string]string{
			MethodOpenAI:     "https://api.openai.com/v1/models",
			MethodOpenRouter: "https://openrouter.ai/api/v1/models",
			MethodClaude:     "https://api.anthropic.com/v1/models",
			MethodGemini:     "https://generativelanguage.googleapis.com/v1beta/models",
		},
	}
}

// Process forwards the image to the selected provider. Any provider
// failure comes back as an error the handler turns into a partial
// success, never a hard 5xx.
func (d *Dispatcher) Process(ctx context.Context, method string, imageData []byte) (FormData, error) {
	prepared := prepareImage(imageData)

	switch method {
	case MethodOpenAI:
		return d.processChatCompletions(ctx, "https://api.openai.com/v1/chat/completions", "OPENAI_API_KEY", "gpt-4o-mini", prepared)
	case MethodOpenRouter:
		return d.processChatCompletions(ctx, "https://openrouter.ai/api/v1/chat/completions", "OPENROUTER_API_KEY", "openai/gpt-4o-mini", prepared)
	case MethodClaude:
		return d.processClaude(ctx, prepared)
	case MethodGemini:
		return d.processGemini(ctx, prepared)
	case MethodOCRSpace:
		return d.processOCRSpace(ctx, prepared)
	default:
		return FormData{}, appErrors.New(appErrors.ErrInvalidInput, "unknown OCR method: %s", method)
	}
}

// Test reports whether the selected provider is usable with the
// currently configured credentials: the key must be set and the
// provider's status endpoint must accept it.
func (d *Dispatcher) Test(ctx context.Context, method string) error {
	key, err := apiKeyFor(method)
	if err != nil {
		return err
	}

	endpoint, ok := d.pingURLs[method]
	if !ok {
		return nil
	}

	headers := map[string]string{}
	switch method {
	case MethodClaude:
		headers["x-api-key"] = key
		headers["anthropic-version"] = "2023-06-01"
	case MethodGemini:
		endpoint += "?key=" + key
	default:
		headers["Authorization"] = "Bearer " + key
	}
	return d.ping(ctx, endpoint, headers)
}

func (d *Dispatcher) ping(ctx context.Context, endpoint string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return appErrors.New(appErrors.ErrUpstream, "provider unreachable: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return appErrors.New(appErrors.ErrUpstream, "provider rejected the API key (status %d)", resp.StatusCode)
	case resp.StatusCode >= 500:
		return appErrors.New(appErrors.ErrUpstream, "provider returned status %d", resp.StatusCode)
	}
	return nil
}

// KeyVariableFor returns the environment variable that holds the API key
// for the given provider.
func KeyVariableFor(method string) (string, error) {
	envVar, ok := map[string]string{
		MethodOpenAI:     "OPENAI_API_KEY",
		MethodOpenRouter: "OPENROUTER_API_KEY",
		MethodClaude:     "ANTHROPIC_API_KEY",
		MethodGemini:     "GEMINI_API_KEY",
		MethodOCRSpace:   "OCR_SPACE_API_KEY",
	}[method]
	if !ok {
		return "", appErrors.New(appErrors.ErrInvalidInput, "unknown OCR method: %s", method)
	}
	return envVar, nil
}

func apiKeyFor(method string) (string, error) {
	envVar, err := KeyVariableFor(method)
	if err != nil {
		return "", err
	}
	key := os.Getenv(envVar)
	if key == "" {
		return "", appErrors.New(appErrors.ErrUpstream, "no API key configured for provider '%s' (%s)", method, envVar)
	}
	return key, nil
}

// prepareImage downscales oversized receipts and re-encodes them as JPEG.
// Images that fail to decode pass through untouched; the provider may
// still accept them.
func prepareImage(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	if img.Bounds().Dx() <= maxImageWidth {
		return data
	}

	scaled := resize.Resize(maxImageWidth, 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85}); err != nil {
		logging.Logger.Warnf("failed to re-encode receipt image, sending original: %v", err)
		return data
	}
	return buf.Bytes()
}

// DecodeImage accepts either a bare base64 string or a full data URL.
func DecodeImage(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, "base64,"); idx >= 0 {
		encoded = encoded[idx+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, appErrors.New(appErrors.ErrInvalidInput, "invalid image encoding: %v", err)
	}
	return data, nil
}

func dataURL(imageData []byte) string {
	contentType := http.DetectContentType(imageData)
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(imageData))
}

const extractionPrompt = `Extract the following fields from this receipt and answer with a single JSON object, no prose:
{"date":"YYYY-MM-DD","vendor":"","location":"","cost":"","type":"","items":["",""]}
"cost" is the receipt total as a plain decimal number. "type" is one of: Meals, Transportation, Lodging, Supplies, Entertainment, Other. Leave fields you cannot read as empty strings.`

// parseModelJSON digs the JSON object out of a model reply, tolerating
// code fences and synonym keys some models insist on.
func parseModelJSON(content string) (FormData, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return FormData{}, appErrors.New(appErrors.ErrUpstream, "provider response contains no JSON object")
	}

	raw, err := decodeLooseFields(content[start : end+1])
	if err != nil {
		return FormData{}, appErrors.New(appErrors.ErrUpstream, "malformed provider response: %v", err)
	}

	form := FormData{
		Date:     pickString(raw, "date"),
		Vendor:   pickString(raw, "vendor", "merchant", "store"),
		Location: pickString(raw, "location", "address", "city"),
		Cost:     pickString(raw, "cost", "total", "amount"),
		Type:     pickString(raw, "type", "category"),
		Items:    pickStrings(raw, "items", "line_items", "lineItems"),
	}
	return form, nil
}

// normalizeRawText builds form fields out of a plain OCR text dump. This
// backs the ocrspace provider, which returns text rather than fields.
func normalizeRawText(rawText string) FormData {
	var form FormData

	lines := strings.Split(rawText, "\n")
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			// Receipts normally lead with the merchant name.
			form.Vendor = trimmed
			break
		}
	}

	dateRegex := regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{2}[./]\d{2}[./]\d{4}`)
	if match := dateRegex.FindString(rawText); match != "" {
		form.Date = normalizeDate(match)
	}

	// Dotted dates would otherwise read as amounts; drop them first.
	amountText := dateRegex.ReplaceAllString(rawText, "")

	amountRegex := regexp.MustCompile(`\d+[.,]\d{2}`)
	var largest float64
	for _, match := range amountRegex.FindAllString(amountText, -1) {
		num, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
		if err != nil {
			continue
		}
		// The receipt total is usually the largest amount printed.
		if num > largest {
			largest = num
			form.Cost = strconv.FormatFloat(num, 'f', 2, 64)
		}
	}

	return form
}

func normalizeDate(raw string) string {
	for _, layout := range []string{"2006-01-02", "02.01.2006", "02/01/2006"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return raw
}
