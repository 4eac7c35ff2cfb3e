package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseModelJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    FormData
		wantErr bool
	}{
		{
			name:    "plain object",
			content: `{"date":"2025-04-15","vendor":"Taxi Service","location":"Chicago","cost":"89.99","type":"Transportation","items":["airport ride"]}`,
			want: FormData{
				Date:     "2025-04-15",
				Vendor:   "Taxi Service",
				Location: "Chicago",
				Cost:     "89.99",
				Type:     "Transportation",
				Items:    []string{"airport ride"},
			},
		},
		{
			name:    "fenced with prose",
			content: "Here is the extraction:\n```json\n{\"date\":\"2025-04-15\",\"vendor\":\"Hotel Uptown\",\"total\":\"240.00\"}\n```",
			want:    FormData{Date: "2025-04-15", Vendor: "Hotel Uptown", Cost: "240.00"},
		},
		{
			name:    "synonym keys",
			content: `{"merchant":"Cafe Roma","amount":12.5,"category":"Meals"}`,
			want:    FormData{Vendor: "Cafe Roma", Cost: "12.5", Type: "Meals"},
		},
		{
			name:    "no json at all",
			content: "I could not read the receipt, sorry.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseModelJSON(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRawText(t *testing.T) {
	rawText := "TAXI SERVICE\n123 W Monroe St\n2025-04-15\nBase fare 65.00\nTip 24.99\nTotal 89.99\n"

	form := normalizeRawText(rawText)

	require.Equal(t, "TAXI SERVICE", form.Vendor)
	require.Equal(t, "89.99", form.Cost)
	require.Equal(t, "2025-04-15", form.Date)
}

func TestNormalizeRawTextEuropeanDate(t *testing.T) {
	form := normalizeRawText("SHOP\n15.04.2025\nTotal 10,50")

	require.Equal(t, "2025-04-15", form.Date)
	require.Equal(t, "10.50", form.Cost)
}

func TestProcessUnknownMethod(t *testing.T) {
	d := NewDispatcher()

	_, err := d.Process(context.Background(), "tesseract", []byte("not an image"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown OCR method")
}

func TestProcessMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	d := NewDispatcher()

	_, err := d.Process(context.Background(), MethodOpenAI, []byte("not an image"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no API key configured")
}

func TestTestMethod(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer.Close()
	badKeyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer badKeyServer.Close()

	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_KEY", "bad-key")
	t.Setenv("OCR_SPACE_API_KEY", "space-key")
	t.Setenv("ANTHROPIC_API_KEY", "")

	d := NewDispatcher()
	d.pingURLs[MethodGemini] = okServer.URL
	d.pingURLs[MethodOpenAI] = badKeyServer.URL

	require.NoError(t, d.Test(context.Background(), MethodGemini))

	err := d.Test(context.Background(), MethodOpenAI)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rejected the API key")

	err = d.Test(context.Background(), MethodClaude)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no API key configured")

	// OCR.space has no status endpoint; the key check alone decides.
	require.NoError(t, d.Test(context.Background(), MethodOCRSpace))

	require.Error(t, d.Test(context.Background(), "unknown"))
}
