package router

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/quangvt/relay/internal/domain"
)

// Registry holds the agent profiles in registration order. Iteration order
// is deterministic so score ties always resolve the same way.
type Registry struct {
	profiles []*domain.AgentProfile
}

// defaultProfiles returns the built-in agent catalogue. Keywords and
// examples are Vietnamese-first because that is the primary user language.
func defaultProfiles() []*domain.AgentProfile {
	return []*domain.AgentProfile{
		{
			Type:        domain.AgentMath,
			Name:        "Math Agent",
			Description: "Chuyên giải toán, phương trình, tính toán, phân tích số liệu",
			Keywords: []string{
				"giải", "phương trình", "toán", "tính", "tính toán", "x^", "=", "công thức",
				"đại số", "hình học", "giải tích", "thống kê", "xác suất", "ma trận",
				"đạo hàm", "tích phân", "logarit", "sin", "cos", "tan", "căn bậc",
				"bất phương trình", "hệ phương trình", "đồ thị", "hàm số",
			},
			Examples: []string{
				"Giải phương trình x^2 - 5x + 6 = 0",
				"Tính đạo hàm của hàm f(x) = x^3 + 2x^2 - 5x + 1",
				"Tìm nghiệm của hệ phương trình tuyến tính",
				"Vẽ đồ thị hàm số y = sin(x)",
				"Tính xác suất của biến cố ngẫu nhiên",
			},
			Capabilities: []string{
				"Giải phương trình đại số", "Tính toán vi phân", "Phân tích thống kê",
				"Vẽ đồ thị hàm số", "Giải hệ phương trình", "Tính xác suất",
			},
		},
		{
			Type:        domain.AgentResearch,
			Name:        "Research Agent",
			Description: "Nghiên cứu, tìm kiếm thông tin, tin tức, phân tích dữ liệu",
			Keywords: []string{
				"nghiên cứu", "tìm hiểu", "thông tin", "tin tức", "news", "tìm kiếm",
				"phân tích", "báo cáo", "báo chí", "cập nhật", "mới nhất", "xu hướng",
				"thị trường", "kinh tế", "chính trị", "công nghệ", "khoa học", "y tế",
				"giáo dục", "môi trường", "năng lượng", "tài chính", "đầu tư",
			},
			Examples: []string{
				"Tin tức mới nhất về AI tuần này",
				"Phân tích xu hướng thị trường chứng khoán",
				"Tìm hiểu về công nghệ blockchain",
				"Báo cáo về tình hình kinh tế Việt Nam",
				"Nghiên cứu về biến đổi khí hậu",
			},
			Capabilities: []string{
				"Tìm kiếm thông tin realtime", "Phân tích xu hướng", "Tổng hợp báo cáo",
				"Cập nhật tin tức", "Nghiên cứu thị trường", "Phân tích dữ liệu",
			},
		},
		{
			Type:        domain.AgentOCR,
			Name:        "OCR Agent",
			Description: "Xử lý ảnh, OCR, nhận dạng văn bản, scan tài liệu",
			Keywords: []string{
				"ocr", "ảnh", "hình", "image", "scan", "nhận dạng", "văn bản",
				"tài liệu", "pdf", "jpg", "png", "bmp", "tiff", "chuyển đổi",
				"text", "extract", "đọc", "chữ", "ký tự", "bảng", "biểu đồ",
			},
			Examples: []string{
				"Xử lý ảnh này bằng OCR",
				"Chuyển đổi tài liệu PDF thành text",
				"Nhận dạng văn bản trong hình ảnh",
				"Scan và đọc nội dung bảng biểu",
				"Extract text từ file ảnh",
			},
			Capabilities: []string{
				"OCR văn bản", "Xử lý ảnh", "Nhận dạng ký tự", "Chuyển đổi tài liệu",
				"Extract text", "Scan tài liệu", "Nhận dạng bảng biểu",
			},
		},
		{
			Type:        domain.AgentGeneral,
			Name:        "General Agent",
			Description: "Trợ lý tổng quát, trả lời câu hỏi, tư vấn, hỗ trợ, lập trình",
			Keywords: []string{
				"hỏi", "giúp", "tư vấn", "hướng dẫn", "cách", "làm sao", "tại sao",
				"là gì", "như thế nào", "khi nào", "ở đâu", "ai", "cái gì",
				"giải thích", "mô tả", "so sánh", "phân biệt", "ưu nhược điểm",
				"code", "lập trình", "programming", "python", "javascript", "java",
				"function", "class", "variable", "debug", "bug", "sửa lỗi",
				"viết", "tạo", "xây dựng", "phát triển", "thiết kế",
			},
			Examples: []string{
				"Hôm nay là ngày gì?",
				"Giải thích về machine learning",
				"So sánh iPhone và Samsung",
				"Hướng dẫn nấu phở",
				"Làm sao viết function Python?",
				"Cách debug lỗi JavaScript",
				"Tạo API REST với Flask",
				"Tư vấn chọn laptop",
			},
			Capabilities: []string{
				"Trả lời câu hỏi", "Tư vấn", "Hướng dẫn", "Giải thích", "So sánh",
				"Phân tích", "Đưa ra gợi ý", "Hỗ trợ tổng quát", "Lập trình", "Code",
				"Debug", "Viết function", "Tạo API", "Phát triển phần mềm",
			},
		},
	}
}

// NewRegistry builds the default registry and embeds each profile once. An
// embedding failure leaves that profile's embedding nil, which degrades the
// router to keyword matching for it, and registry construction still
// succeeds.
func NewRegistry(ctx context.Context, embedder domain.EmbeddingClient, logger *zap.Logger) *Registry {
	profiles := defaultProfiles()

	for _, p := range profiles {
		text := profileText(p)
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			logger.Warn("failed to embed agent profile, falling back to keyword matching",
				zap.String("agent", string(p.Type)),
				zap.Error(err))
			continue
		}
		p.Embedding = vec
	}

	return &Registry{profiles: profiles}
}

// NewRegistryFromProfiles is used by tests to control the profile set.
func NewRegistryFromProfiles(profiles []*domain.AgentProfile) *Registry {
	return &Registry{profiles: profiles}
}

// Profiles returns the profiles in registration order.
func (r *Registry) Profiles() []*domain.AgentProfile {
	return r.profiles
}

// Get returns the profile for an agent type, or nil when unknown.
func (r *Registry) Get(agentType domain.AgentType) *domain.AgentProfile {
	for _, p := range r.profiles {
		if p.Type == agentType {
			return p
		}
	}
	return nil
}

func profileText(p *domain.AgentProfile) string {
	return p.Description + " " + strings.Join(p.Keywords, " ") + " " + strings.Join(p.Examples, " ")
}
