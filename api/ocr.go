package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/0xcafe-io/iz"
	"github.com/tripspend/trip_tracker/internal/ocr"
	"github.com/tripspend/trip_tracker/logging"
)

// OcrProcessHandler runs receipt extraction. A provider failure is not an
// HTTP error: the client gets 200 with success=false so the expense form
// keeps whatever was already typed.
func (api *Api) OcrProcessHandler(r *iz.Request) iz.Responder {
	_, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var method string
	var imageData []byte

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return iz.Respond().Status(400).Text(fmt.Sprintf("failed to parse form: %v", err))
		}
		method = r.FormValue("method")

		file, _, err := r.FormFile("receipt")
		if err != nil {
			return iz.Respond().Status(400).Text("missing 'receipt' form field")
		}
		defer file.Close()
		imageData, err = io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil {
			return iz.Respond().Status(400).Text(fmt.Sprintf("failed to read receipt: %v", err))
		}
	} else {
		var ocrReq OcrProcessRequest
		if err := json.NewDecoder(r.Body).Decode(&ocrReq); err != nil {
			msg := fmt.Sprintf("invalid request body: %s", err.Error())
			return iz.Respond().Status(400).Text(msg)
		}
		if ocrReq.Image == "" {
			return iz.Respond().Status(400).Text("image is required")
		}
		decoded, err := ocr.DecodeImage(ocrReq.Image)
		if err != nil {
			return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
		}
		method = ocrReq.Method
		imageData = decoded
	}

	if method == "" {
		method = os.Getenv("OCR_METHOD")
	}

	formData, err := api.Ocr.Process(ctx, method, imageData)
	if err != nil {
		logging.Logger.Warnf("Receipt extraction failed: %v", err)
		return iz.Respond().Status(200).JSON(OcrResultResponse{
			Success: false,
			Error:   err.Error(),
		})
	}

	return iz.Respond().Status(200).JSON(OcrResultResponse{
		Success:  true,
		FormData: &formData,
	})
}

func (api *Api) OcrTestHandler(r *iz.Request) iz.Responder {
	_, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var testReq OcrTestRequest
	if err := json.NewDecoder(r.Body).Decode(&testReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	if err := api.Ocr.Test(ctx, testReq.Method); err != nil {
		return iz.Respond().Status(200).JSON(OcrResultResponse{
			Success: false,
			Error:   err.Error(),
		})
	}
	return iz.Respond().Status(200).JSON(OcrResultResponse{Success: true})
}

func (api *Api) GetSettingsHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	return iz.Respond().Status(200).JSON(SettingsResponse{
		OcrMethod: os.Getenv("OCR_METHOD"),
	})
}

func (api *Api) UpdateSettingsHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var settingsReq UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&settingsReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	keyVar, err := ocr.KeyVariableFor(settingsReq.OcrMethod)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	if err := setEnvSetting("OCR_METHOD", settingsReq.OcrMethod); err != nil {
		logging.Logger.Errorf("Failed to persist OCR method: %v", err)
		return iz.Respond().Status(500).Text("failed to save settings")
	}
	if settingsReq.ApiKey != "" {
		if err := setEnvSetting(keyVar, settingsReq.ApiKey); err != nil {
			logging.Logger.Errorf("Failed to persist API key: %v", err)
			return iz.Respond().Status(500).Text("failed to save settings")
		}
	}

	return iz.Respond().Status(200).JSON(SettingsResponse{
		OcrMethod: settingsReq.OcrMethod,
		Message:   "Settings saved.",
	})
}

// setEnvSetting updates the process environment and rewrites the matching
// line in .env so the value survives a restart.
func setEnvSetting(key, value string) error {
	if err := os.Setenv(key, value); err != nil {
		return err
	}

	content, err := os.ReadFile(".env")
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), key+"=") {
			lines[i] = key + "=" + value
			replaced = true
		}
	}
	if !replaced {
		if len(lines) == 1 && lines[0] == "" {
			lines = nil
		}
		lines = append(lines, key+"="+value)
	}

	return os.WriteFile(".env", []byte(strings.Join(lines, "\n")+"\n"), 0600)
}
