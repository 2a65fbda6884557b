package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// VinternClient uploads an image to the Vintern OCR service and formats
// the recognized blocks into readable text.
type VinternClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewVinternClient(baseURL string) *VinternClient {
	return &VinternClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type ocrBlock struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type ocrResponse struct {
	Status     string     `json:"status"`
	Msg        string     `json:"msg"`
	Blocks     []ocrBlock `json:"blocks"`
	MergedText string     `json:"merged_text"`
}

// Recognize uploads the image at imagePath and returns the extracted text.
func (c *VinternClient) Recognize(ctx context.Context, imagePath string) (string, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = file.Close() }()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", &buf)
	if err != nil {
		return "", fmt.Errorf("create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read OCR response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ocrResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal OCR response: %w", err)
	}

	if result.Status != "ok" {
		return "", fmt.Errorf("OCR failed: %s", result.Msg)
	}

	text := formatBlocks(result.Blocks, result.MergedText)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("OCR returned no usable text")
	}
	return text, nil
}

// formatBlocks renders OCR blocks as compact markdown: latex blocks are
// wrapped in display math markers, text blocks get their line fragments
// rejoined into flowing paragraphs. Falls back to the merged text when the
// service returned no blocks.
func formatBlocks(blocks []ocrBlock, mergedText string) string {
	if len(blocks) == 0 {
		return mergedText
	}

	var formatted []string
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		if b.Type == "latex" {
			formatted = append(formatted, "$$\n"+text+"\n$$")
			continue
		}
		var lines []string
		for _, line := range strings.Split(text, "\n") {
			if l := strings.TrimSpace(line); l != "" {
				lines = append(lines, l)
			}
		}
		formatted = append(formatted, strings.Join(lines, " "))
	}
	return strings.Join(formatted, "\n\n")
}
