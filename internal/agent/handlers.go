package agent

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/quangvt/relay/internal/domain"
)

// HandlerRequest carries everything a handler needs for one invocation:
// the raw prompt, relevant long-term memories, and the short-term
// conversation rendered for prompt assembly.
type HandlerRequest struct {
	Prompt       string
	Memories     []domain.MemoryWithScore
	Conversation string
}

// Handler is one specialized agent. MemoryType names the long-term memory
// type retrieved before invocation; nil means the handler uses none.
type Handler interface {
	Type() domain.AgentType
	MemoryType() *domain.MemoryType
	Handle(ctx context.Context, req HandlerRequest) (string, error)
}

func memoryTypePtr(t domain.MemoryType) *domain.MemoryType { return &t }

// memoryContext renders retrieved memories as a numbered list, each entry
// truncated so old answers never dominate the prompt.
func memoryContext(header string, memories []domain.MemoryWithScore) string {
	if len(memories) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("=== " + header + " ===\n")
	for i, m := range memories {
		content := m.Content
		if runes := []rune(content); len(runes) > 200 {
			content = string(runes[:200]) + "..."
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, content)
	}
	return b.String()
}

// --- general ---

const generalSystemPrompt = "Bạn là trợ lý AI thông minh, hãy trả lời câu hỏi một cách chi tiết và hữu ích."

// GeneralHandler answers open-ended questions with the LLM, grounded on
// retrieved knowledge and the conversation so far.
type GeneralHandler struct {
	llm domain.LLMClient
}

func NewGeneralHandler(llm domain.LLMClient) *GeneralHandler {
	return &GeneralHandler{llm: llm}
}

func (h *GeneralHandler) Type() domain.AgentType { return domain.AgentGeneral }

func (h *GeneralHandler) MemoryType() *domain.MemoryType {
	return memoryTypePtr(domain.MemoryTypeKnowledge)
}

func (h *GeneralHandler) Handle(ctx context.Context, req HandlerRequest) (string, error) {
	messages := []domain.ChatMessage{
		{Role: "system", Content: generalSystemPrompt},
	}

	if knowledge := memoryContext("KIẾN THỨC LIÊN QUAN", req.Memories); knowledge != "" {
		messages = append(messages, domain.ChatMessage{
			Role:    "system",
			Content: knowledge + "Hãy sử dụng thông tin trên để trả lời câu hỏi.",
		})
	}
	if req.Conversation != "" {
		messages = append(messages, domain.ChatMessage{
			Role:    "system",
			Content: "Ngữ cảnh cuộc trò chuyện:\n" + req.Conversation,
		})
	}
	messages = append(messages, domain.ChatMessage{Role: "user", Content: req.Prompt})

	return h.llm.Complete(ctx, messages, domain.CompleteOpts{Temperature: 0.7, MaxTokens: 1024})
}

// --- math ---

const mathSystemPrompt = "Bạn là trợ lý giải toán chi tiết và chính xác. " +
	"Mọi công thức toán học phải được viết bằng LaTeX với delimiters $ (inline) hoặc $$ (display). " +
	"Trình bày lời giải từng bước, nêu giả thiết và kết luận rõ ràng."

// MathHandler produces step-by-step solutions, seeded with previously
// solved similar problems.
type MathHandler struct {
	llm domain.LLMClient
}

func NewMathHandler(llm domain.LLMClient) *MathHandler {
	return &MathHandler{llm: llm}
}

func (h *MathHandler) Type() domain.AgentType { return domain.AgentMath }

func (h *MathHandler) MemoryType() *domain.MemoryType {
	return memoryTypePtr(domain.MemoryTypeMathSolution)
}

func (h *MathHandler) Handle(ctx context.Context, req HandlerRequest) (string, error) {
	var user strings.Builder
	fmt.Fprintf(&user, "Bài toán:\n%s\n\n", req.Prompt)
	if prior := memoryContext("BÀI TOÁN TƯƠNG TỰ ĐÃ GIẢI", req.Memories); prior != "" {
		user.WriteString(prior + "\n")
	}
	user.WriteString("Lời giải chi tiết:")

	return h.llm.Complete(ctx, []domain.ChatMessage{
		{Role: "system", Content: mathSystemPrompt},
		{Role: "user", Content: user.String()},
	}, domain.CompleteOpts{Temperature: 0.3, MaxTokens: 1024})
}

// --- research ---

const researchSystemPrompt = "You are a precise research assistant. Use the provided web findings to answer the question.\n" +
	"- Cite sources inline with [n] where n is the result index when a claim relies on a source.\n" +
	"- If information is uncertain or conflicting, state that clearly.\n" +
	"- Keep the answer concise and actionable.\n" +
	"- End with a 'Sources:' section listing the links you used."

// ResearchHandler searches the web and synthesizes an answer with the LLM.
// A failed search degrades to answering from the LLM and prior research
// memories alone.
type ResearchHandler struct {
	llm    domain.LLMClient
	search domain.SearchClient
}

func NewResearchHandler(llm domain.LLMClient, search domain.SearchClient) *ResearchHandler {
	return &ResearchHandler{llm: llm, search: search}
}

func (h *ResearchHandler) Type() domain.AgentType { return domain.AgentResearch }

func (h *ResearchHandler) MemoryType() *domain.MemoryType {
	return memoryTypePtr(domain.MemoryTypeResearch)
}

func (h *ResearchHandler) Handle(ctx context.Context, req HandlerRequest) (string, error) {
	var findings strings.Builder
	if h.search != nil {
		results, err := h.search.Search(ctx, req.Prompt, 6)
		if err == nil {
			for i, r := range results {
				fmt.Fprintf(&findings, "[%d] %s — %s (%s)\n", i+1, r.Title, r.Snippet, r.Link)
			}
		}
	}
	if findings.Len() == 0 {
		findings.WriteString("(no web findings available)\n")
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Question:\n%s\n\n", req.Prompt)
	if prior := memoryContext("NGHIÊN CỨU LIÊN QUAN", req.Memories); prior != "" {
		user.WriteString(prior + "\n")
	}
	fmt.Fprintf(&user, "Web findings (indexed):\n%s\nAnswer:", findings.String())

	return h.llm.Complete(ctx, []domain.ChatMessage{
		{Role: "system", Content: researchSystemPrompt},
		{Role: "user", Content: user.String()},
	}, domain.CompleteOpts{Temperature: 0.7, MaxTokens: 1024})
}

// --- ocr ---

var imagePathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ảnh\s+(\S+\.(?:jpg|jpeg|png|bmp|tiff))`),
	regexp.MustCompile(`(?i)hình\s+(\S+\.(?:jpg|jpeg|png|bmp|tiff))`),
	regexp.MustCompile(`(?i)image\s+(\S+\.(?:jpg|jpeg|png|bmp|tiff))`),
	regexp.MustCompile(`(?i)file\s+(\S+\.(?:jpg|jpeg|png|bmp|tiff))`),
	regexp.MustCompile(`(?i)(\S+\.(?:jpg|jpeg|png|bmp|tiff))`),
}

const ocrUsageHint = "OCR agent cần đường dẫn ảnh cụ thể. Vui lòng cung cấp đường dẫn file ảnh để xử lý.\n\n" +
	"Ví dụ: 'Xử lý ảnh image.jpg' hoặc 'OCR file document.png'"

// OCRHandler extracts an image path from the request and runs it through
// the OCR service. A request without a usable path gets a usage hint, not
// an error.
type OCRHandler struct {
	ocr domain.OCRClient
}

func NewOCRHandler(ocr domain.OCRClient) *OCRHandler {
	return &OCRHandler{ocr: ocr}
}

func (h *OCRHandler) Type() domain.AgentType { return domain.AgentOCR }

func (h *OCRHandler) MemoryType() *domain.MemoryType { return nil }

func (h *OCRHandler) Handle(ctx context.Context, req HandlerRequest) (string, error) {
	imagePath := extractImagePath(req.Prompt)
	if imagePath == "" {
		return ocrUsageHint, nil
	}

	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Sprintf("Không tìm thấy file ảnh: %s\nVui lòng kiểm tra đường dẫn file.", imagePath), nil
	}

	text, err := h.ocr.Recognize(ctx, imagePath)
	if err != nil {
		return "", fmt.Errorf("recognize image %s: %w", imagePath, err)
	}

	return fmt.Sprintf("Kết quả OCR từ %s:\n\n%s", imagePath, text), nil
}

func extractImagePath(prompt string) string {
	for _, pattern := range imagePathPatterns {
		if m := pattern.FindStringSubmatch(prompt); m != nil {
			return m[1]
		}
	}
	return ""
}
