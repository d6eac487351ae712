package ollama

import (
	"fmt"
	"strings"
)

const maxPassageSnippet = 2000

func buildExpansionPrompt(question string, variantCount int) string {
	return fmt.Sprintf(`Bạn là dịch giả chuyên ngành pháp luật Nhật Bản.
Dịch câu hỏi pháp luật từ tiếng Việt sang tiếng Nhật và mở rộng truy vấn tìm kiếm.

Quy tắc:
1. Giữ nguyên các thuật ngữ pháp lý đã có tiếng Nhật (例: 労働基準法)
2. Dịch ngắn gọn, tập trung vào keywords pháp lý
3. Nếu input đã là tiếng Nhật, giữ nguyên bản dịch

Trả về JSON với các khóa:
translated (string, bản dịch tiếng Nhật),
keywords (array, thuật ngữ pháp lý tiếng Nhật),
related_terms (array, thuật ngữ liên quan),
search_queries (array, tối đa %d truy vấn tìm kiếm tiếng Nhật).
Không markdown, không khóa thừa.

Câu hỏi:
%s`, variantCount, question)
}

func buildGradePrompt(question, passage string) string {
	return fmt.Sprintf(`Bạn là chuyên gia đánh giá tài liệu pháp lý.
Đánh giá tài liệu có liên quan đến câu hỏi không.
Trả lời CHỈ MỘT từ: "relevant" hoặc "not_relevant".

Câu hỏi: %s

Tài liệu: %s`, question, truncate(passage, maxPassageSnippet))
}

func buildRewritePrompt(question string, failedVariants []string) string {
	var sb strings.Builder
	sb.WriteString(`Bạn là chuyên gia pháp luật Nhật Bản.
Viết lại câu hỏi để tìm kiếm tốt hơn trong cơ sở dữ liệu pháp luật.
Thêm từ khóa pháp lý cụ thể, điều luật liên quan.
Trả lời CHỈ câu hỏi đã viết lại bằng tiếng Việt.

`)
	sb.WriteString("Câu hỏi gốc: ")
	sb.WriteString(question)
	if len(failedVariants) > 0 {
		sb.WriteString("\n\nCác truy vấn không tìm thấy tài liệu liên quan:\n")
		for _, v := range failedVariants {
			sb.WriteString("- ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func buildScorePrompt(question, passage string) string {
	return fmt.Sprintf(`Đánh giá mức độ liên quan giữa câu hỏi và đoạn văn bản pháp luật.
Trả lời CHỈ MỘT số thập phân từ 0 đến 1 (ví dụ: 0.85). Không giải thích.

Câu hỏi: %s

Đoạn văn bản: %s`, question, truncate(passage, maxPassageSnippet))
}

func buildAnswerPrompt(question string, contextBlocks []string) string {
	return fmt.Sprintf(`Bạn là trợ lý chuyên gia pháp luật Nhật Bản.
Trả lời câu hỏi dựa trên ngữ cảnh tài liệu pháp luật được cung cấp.

Quy tắc:
1. Chỉ sử dụng thông tin từ ngữ cảnh được cung cấp
2. Trả lời bằng TIẾNG VIỆT
3. Giữ nguyên các thuật ngữ pháp lý tiếng Nhật quan trọng, kèm giải thích tiếng Việt trong ngoặc
   Ví dụ: 労働基準法 (Luật Tiêu chuẩn Lao động)
4. Trích dẫn nguồn bằng chỉ số [n] theo đúng số thứ tự tài liệu trong ngữ cảnh
5. Nếu không tìm thấy thông tin, trả lời "Không tìm thấy thông tin liên quan trong tài liệu."

【Tài liệu tham khảo / 参照文書】
%s

【Câu hỏi / 質問】
%s

【Trả lời bằng tiếng Việt, có chú thích tiếng Nhật và trích dẫn nguồn】`,
		strings.Join(contextBlocks, "\n\n---\n\n"), question)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
