package agent

import (
	"strings"

	"vitalia/internal/models"
)

// UnparsedDoctorReport 无法解析三段式结构时的医生报告
const UnparsedDoctorReport = "Could not parse doctor report."

// ParseResponse 解析模型返回的三段式文本，不会失败
// 少于三段时：整段文本作为患者建议，医生报告为固定文案，emergency=false
func ParseResponse(text string) models.AnalysisResult {
	parts := strings.Split(text, SectionDelimiter)
	if len(parts) < 3 {
		return models.AnalysisResult{
			PatientAdvice: text,
			DoctorReport:  UnparsedDoctorReport,
			Emergency:     false,
		}
	}

	advice := strings.TrimSpace(strings.ReplaceAll(parts[0], PatientAdviceLabel, ""))
	report := strings.TrimSpace(strings.ReplaceAll(parts[1], DoctorReportLabel, ""))
	status := strings.TrimSpace(strings.ReplaceAll(parts[2], EmergencyLabel, ""))

	return models.AnalysisResult{
		PatientAdvice: advice,
		DoctorReport:  report,
		Emergency:     strings.Contains(strings.ToUpper(status), "YES"),
	}
}
