package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBlocks(t *testing.T) {
	t.Run("latex wrapped in display math", func(t *testing.T) {
		out := formatBlocks([]ocrBlock{
			{Text: "Đề bài như sau", Type: "text"},
			{Text: "x^2 - 5x + 6 = 0", Type: "latex"},
		}, "")
		assert.Equal(t, "Đề bài như sau\n\n$$\nx^2 - 5x + 6 = 0\n$$", out)
	})

	t.Run("text fragments rejoined", func(t *testing.T) {
		out := formatBlocks([]ocrBlock{
			{Text: "dòng một\n  dòng hai  \n\ndòng ba", Type: "text"},
		}, "")
		assert.Equal(t, "dòng một dòng hai dòng ba", out)
	})

	t.Run("falls back to merged text", func(t *testing.T) {
		out := formatBlocks(nil, "toàn bộ văn bản")
		assert.Equal(t, "toàn bộ văn bản", out)
	})

	t.Run("empty blocks skipped", func(t *testing.T) {
		out := formatBlocks([]ocrBlock{{Text: "   ", Type: "text"}, {Text: "nội dung", Type: "text"}}, "")
		assert.Equal(t, "nội dung", out)
	})
}

func TestVinternRecognize(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "sample.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("fake image bytes"), 0o644))

	t.Run("successful recognition", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/ocr", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1 << 20))
			_, header, err := r.FormFile("file")
			require.NoError(t, err)
			assert.Equal(t, "sample.png", header.Filename)

			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "ok",
				"blocks": []map[string]string{
					{"text": "văn bản nhận dạng", "type": "text"},
				},
			})
		}))
		defer server.Close()

		client := NewVinternClient(server.URL)
		text, err := client.Recognize(context.Background(), imgPath)
		require.NoError(t, err)
		assert.Equal(t, "văn bản nhận dạng", text)
	})

	t.Run("service error surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "msg": "model not loaded"})
		}))
		defer server.Close()

		client := NewVinternClient(server.URL)
		_, err := client.Recognize(context.Background(), imgPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not loaded")
	})

	t.Run("missing file", func(t *testing.T) {
		client := NewVinternClient("http://localhost:0")
		_, err := client.Recognize(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
		assert.Error(t, err)
	})
}
