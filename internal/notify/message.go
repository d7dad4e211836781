package notify

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kingrea/reportdesk/internal/archive"
	"github.com/kingrea/reportdesk/internal/form"
	"github.com/kingrea/reportdesk/internal/store"
)

const (
	// MessageLimit is the Telegram cap on a single message, in characters.
	MessageLimit = 4096
	// PartLimit is the size parts are cut to, leaving room for the
	// "[Часть X/N]" prefix.
	PartLimit = 4000

	// TestMessage is sent by TestConnection.
	TestMessage = "🔔 Тестовое сообщение от системы автоматизации отчётов"
)

var separator = strings.Repeat("─", 40)

// FormatReport renders a stored report as plain message text.
func FormatReport(r *store.Report) string {
	var lines []string
	lines = append(lines,
		fmt.Sprintf("📋 %s", archive.Title(*r)),
		fmt.Sprintf("📅 Дата отчёта: %s", r.ReportDate),
		fmt.Sprintf("🕐 Создан: %s", archive.CreatedLabel(*r)),
		"",
		separator,
		"",
	)
	for i, a := range r.Answers {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, a.QuestionText))
		switch a.Decision {
		case form.DecisionYesText:
			lines = append(lines, "✅ Ответ: "+form.DecisionYesText)
		case form.DecisionNoText:
			lines = append(lines, "❌ Ответ: "+form.DecisionNoText)
		default:
			lines = append(lines, "▪️ Ответ: "+a.Decision)
		}
		if comment := strings.TrimSpace(a.Comment); comment != "" {
			lines = append(lines, "💬 "+comment)
		}
		lines = append(lines, "")
	}
	lines = append(lines, separator, fmt.Sprintf("📊 Всего вопросов: %d", len(r.Answers)))
	return strings.Join(lines, "\n")
}

// Messages returns the texts to send for body: body itself when it fits in
// MessageLimit, otherwise SplitMessage parts prefixed "[Часть X/N]".
func Messages(body string) []string {
	if utf8.RuneCountInString(body) <= MessageLimit {
		return []string{body}
	}
	parts := SplitMessage(body, PartLimit)
	if len(parts) == 1 {
		return parts
	}
	out := make([]string, len(parts))
	for i, part := range parts {
		out[i] = fmt.Sprintf("[Часть %d/%d]\n\n%s", i+1, len(parts), part)
	}
	return out
}

// SplitMessage cuts text into parts of at most limit characters, preferring
// to cut at the last newline inside the window. Whitespace at the start of
// each following part is dropped.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		return []string{text}
	}
	var parts []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= limit {
			parts = append(parts, string(runes))
			break
		}
		cut := lastNewline(runes[:limit])
		if cut <= 0 {
			cut = limit
		}
		parts = append(parts, string(runes[:cut]))
		runes = trimLeftSpace(runes[cut:])
	}
	return parts
}

func lastNewline(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}

func trimLeftSpace(runes []rune) []rune {
	i := 0
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return runes[i:]
}
