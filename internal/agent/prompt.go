package agent

import (
	"fmt"

	"vitalia/internal/models"
)

// Persona 系统提示词
const Persona = `You are vAItal, a calm and professional medical AI assistant.
Your goal is to analyze user vitals and symptoms to provide:
1. Calming advice to the user.
2. An assessment of whether an emergency alert is needed.
3. If emergency alert is needed, summarize the user's condition concisely, suggest what could be happening to patient, include all vital signs and reported symptoms. Recommend the urgency of the situation (e.g., "Immediate attention recommended"), be professional and to the point.

Keep your responses concise and reassuring.
Always prioritize patient safety.
If vitals are severely abnormal, recommend immediate medical attention.`

// 三段式协议的分隔符和段落标签
const (
	SectionDelimiter   = "---"
	PatientAdviceLabel = "SECTION 1 (Patient Advice):"
	DoctorReportLabel  = "SECTION 2 (Doctor Report):"
	EmergencyLabel     = "SECTION 3 (Emergency Status):"
)

// BuildPrompt 构造分析请求，要求模型严格按三段式返回
func BuildPrompt(sample models.VitalsSample, symptoms string) string {
	return fmt.Sprintf(`Current Vitals: %s
User Symptoms: %s

Please provide three distinct sections separated by "%s":

%s
Directly address the patient. Be calming and concise. Give specific advice on what to do immediately.

%s

%s
For medical professionals. Structured summary including:
- Patient Condition Summary
- Vitals Analysis
- Reported Symptoms
- Recommended Urgency Level

%s

%s
Just "YES" or "NO"
`,
		FormatVitals(sample), symptoms, SectionDelimiter,
		PatientAdviceLabel, SectionDelimiter,
		DoctorReportLabel, SectionDelimiter,
		EmergencyLabel,
	)
}

// FormatVitals 将样本格式化为一行文本
func FormatVitals(s models.VitalsSample) string {
	return fmt.Sprintf("time %s, heart_rate %d bpm, spo2 %d%%, blood_pressure %d/%d mmHg, temperature %.1f°C",
		s.Timestamp, s.HeartRate, s.SpO2, s.SysBP, s.DiaBP, s.Temperature)
}
