// Package analysis produces a short spending commentary from an external
// text generator, with a fixed fallback whenever the generator is absent
// or misbehaves.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chitieu/internal/core"
	"chitieu/internal/log"
	"chitieu/internal/metrics"
)

type Mood string

const (
	MoodHappy     Mood = "happy"
	MoodConcerned Mood = "concerned"
	MoodNeutral   Mood = "neutral"
)

func (m Mood) IsValid() bool {
	return m == MoodHappy || m == MoodConcerned || m == MoodNeutral
}

// Fixed messages shown in place of a generated one.
const (
	GreetingMessage    = "Chào bạn! Mình là Mèo Mập. Hãy thêm chi tiêu để mình giúp bạn quản lý nhé!"
	NoGeneratorMessage = "Vui lòng nhập API Key để Mèo Mập có thể tư vấn nha! (Giả lập: Bạn đang tiêu xài khá ổn đó!)"
	FailureMessage     = "Meow... Mạng đang chập chờn, mình chưa phân tích được. Thử lại sau nhé!"
)

// Result is always renderable. Fallback marks a fixed message.
type Result struct {
	Message  string `json:"message"`
	Mood     Mood   `json:"mood"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Generator sends a prompt to a text model and returns its raw reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Bridge is stateless per call and safe for concurrent use. Callers that
// want a single in-flight analysis guard it themselves.
type Bridge struct {
	gen    Generator
	logger *log.Logger
}

func NewBridge(gen Generator, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Discard()
	}
	return &Bridge{gen: gen, logger: logger.WithComponent(log.ComponentAnalysis)}
}

// Available reports whether a generator is configured.
func (b *Bridge) Available() bool { return b.gen != nil }

// Analyze comments on expenses and their total. It never fails: without
// expenses or a generator, or on any generator or parse failure, it
// returns a fallback with a neutral mood.
func (b *Bridge) Analyze(ctx context.Context, expenses []core.Expense, total core.Money) Result {
	if len(expenses) == 0 {
		return fallback(GreetingMessage)
	}
	if b.gen == nil {
		return fallback(NoGeneratorMessage)
	}

	prompt, err := BuildPrompt(total, core.Summarize(expenses).Breakdown())
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to build analysis prompt", log.FieldError, err)
		return fallback(FailureMessage)
	}
	text, err := b.gen.Generate(ctx, prompt)
	if err != nil {
		b.logger.WarnContext(ctx, "Analysis generator failed",
			log.FieldOperation, log.OpAnalyze,
			log.FieldError, err)
		return fallback(FailureMessage)
	}
	res, ok := ParseResponse(text)
	if !ok {
		b.logger.WarnContext(ctx, "Unusable analysis response",
			log.FieldOperation, log.OpAnalyze,
			"response", truncate(text, 200))
		return fallback(FailureMessage)
	}
	metrics.Analysis.WithLabelValues("remote").Inc()
	return res
}

// Start runs Analyze in the background. The channel yields exactly one
// result and is then closed.
func (b *Bridge) Start(ctx context.Context, expenses []core.Expense, total core.Money) <-chan Result {
	out := make(chan Result, 1)
	list := append([]core.Expense(nil), expenses...)
	go func() {
		defer close(out)
		out <- b.Analyze(ctx, list, total)
	}()
	return out
}

// BuildPrompt embeds the total and the per-label breakdown in the
// instruction sent to the generator.
func BuildPrompt(total core.Money, breakdown map[string]core.Money) (string, error) {
	detail, err := json.Marshal(breakdown)
	if err != nil {
		return "", fmt.Errorf("marshal breakdown: %w", err)
	}
	var b strings.Builder
	b.WriteString(`Bạn là một trợ lý tài chính tên là "Mèo Mập". Tính cách: Dễ thương, hài hước, đôi khi hơi đanh đá nếu tiêu xài hoang phí, nhưng luôn quan tâm.` + "\n\n")
	b.WriteString("Hãy phân tích dữ liệu chi tiêu sau đây trong tháng này:\n")
	fmt.Fprintf(&b, "- Tổng chi: %s VND\n", core.GroupThousands(total.Dong()))
	fmt.Fprintf(&b, "- Chi tiết: %s\n\n", detail)
	b.WriteString("Yêu cầu:\n")
	b.WriteString("1. Đưa ra một nhận xét ngắn gọn (tối đa 2 câu) bằng tiếng Việt.\n")
	b.WriteString("2. Xác định tâm trạng của bạn dựa trên cách chi tiêu (happy, concerned, neutral).\n")
	b.WriteString("3. Trả về định dạng JSON thuần không có markdown block.\n\n")
	b.WriteString("Ví dụ output:\n")
	b.WriteString(`{ "message": "Meow! Tháng này bạn uống trà sữa hơi nhiều nha, coi chừng béo đó!", "mood": "concerned" }`)
	return b.String(), nil
}

// ParseResponse extracts {message, mood} from a generator reply. Markdown
// fences are tolerated. An unknown mood becomes neutral; an empty message
// makes the reply unusable.
func ParseResponse(text string) (Result, bool) {
	text = stripFences(text)
	var raw struct {
		Message string `json:"message"`
		Mood    string `json:"mood"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Result{}, false
	}
	msg := strings.TrimSpace(raw.Message)
	if msg == "" {
		return Result{}, false
	}
	mood := Mood(strings.ToLower(strings.TrimSpace(raw.Mood)))
	if !mood.IsValid() {
		mood = MoodNeutral
	}
	return Result{Message: msg, Mood: mood}, true
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func fallback(msg string) Result {
	metrics.Analysis.WithLabelValues("fallback").Inc()
	return Result{Message: msg, Mood: MoodNeutral, Fallback: true}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
