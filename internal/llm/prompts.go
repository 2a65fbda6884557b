package llm

const contextAnalysisPrompt = `Phân tích câu hỏi sau và trả lời dạng JSON:
{
    "intent": "mục đích chính (solve/research/process/help/learn/create/calculate)",
    "domain": "lĩnh vực (math/science/tech/business/health/education/general)",
    "complexity": "độ phức tạp (simple/medium/complex)",
    "requires_tools": ["danh sách công cụ cần thiết"],
    "urgency": "mức độ khẩn cấp (low/medium/high)",
    "language": "ngôn ngữ chính (vi/en/mixed)"
}

Respond ONLY with JSON. No markdown, no explanation.

Câu hỏi: %q`
