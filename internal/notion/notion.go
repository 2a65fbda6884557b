package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	apiBaseURL = "https://api.notion.com/v1"
	apiVersion = "2022-06-28"

	// Notion caps rich text content at 2000 characters per block.
	maxBlockLen = 2000
)

// Client appends text to Notion pages as paragraph blocks. It is a
// write-only sink; the service never reads pages back.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    apiBaseURL,
		httpClient: &http.Client{},
	}
}

type richText struct {
	Type string `json:"type"`
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
}

type paragraphBlock struct {
	Object    string `json:"object"`
	Type      string `json:"type"`
	Paragraph struct {
		RichText []richText `json:"rich_text"`
	} `json:"paragraph"`
}

type appendRequest struct {
	Children []paragraphBlock `json:"children"`
}

// Append adds text to the end of a page, split into paragraph blocks that
// respect Notion's content length cap.
func (c *Client) Append(ctx context.Context, pageID string, text string) error {
	if text == "" {
		return nil
	}

	var children []paragraphBlock
	for _, chunk := range splitChunks(text, maxBlockLen) {
		var rt richText
		rt.Type = "text"
		rt.Text.Content = chunk

		var block paragraphBlock
		block.Object = "block"
		block.Type = "paragraph"
		block.Paragraph.RichText = []richText{rt}
		children = append(children, block)
	}

	body, err := json.Marshal(appendRequest{Children: children})
	if err != nil {
		return fmt.Errorf("marshal append request: %w", err)
	}

	url := fmt.Sprintf("%s/blocks/%s/children", c.baseURL, pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create append request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("append request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notion API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func splitChunks(text string, size int) []string {
	var chunks []string
	runes := []rune(text)
	for len(runes) > size {
		chunks = append(chunks, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
