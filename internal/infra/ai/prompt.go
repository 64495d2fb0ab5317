package ai

import (
	"fmt"
	"strings"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
)

const systemPrompt = `You are an expert question setter for Indian competitive exams.
You always answer with a single JSON object and nothing else.`

var examSyllabus = map[entities.ExamType]string{
	entities.ExamUPSC:    "UPSC Civil Services Preliminary: history, polity, geography, economy, environment, science and current affairs",
	entities.ExamPSC:     "State Public Service Commission: state history and geography, Indian polity, general studies and current affairs",
	entities.ExamSSC:     "Staff Selection Commission: general awareness, quantitative aptitude, reasoning and English",
	entities.ExamBanking: "Banking (IBPS/SBI): banking awareness, financial terms, quantitative aptitude and reasoning",
}

func buildPrompt(req entities.QuestionRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Generate %d multiple-choice questions for the %s exam.\n", req.Count, req.ExamType)
	if syllabus, ok := examSyllabus[req.ExamType]; ok {
		fmt.Fprintf(&sb, "Syllabus: %s.\n", syllabus)
	}
	fmt.Fprintf(&sb, "Difficulty: %s.\n", req.Difficulty)
	if req.Language != "" {
		fmt.Fprintf(&sb, "Write questions, options and explanations in %s.\n", req.Language)
	}

	sb.WriteString(`
Return a JSON object of the form:
{"questions":[{"question":"...","options":["...","...","...","..."],"correctOption":0,"explanation":"...","category":"...","difficulty":"easy|medium|hard"}]}
Every question must have exactly 4 options and correctOption must be the 0-based index of the right one.
`)

	if n := len(req.AskedQuestionIDs); n > 0 {
		fmt.Fprintf(&sb, "The candidate has already answered %d questions; avoid the most common textbook questions.\n", n)
	}

	return sb.String()
}
