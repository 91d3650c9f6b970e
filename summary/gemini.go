package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/warp/attendance/attendance"
	"google.golang.org/genai"
)

// =============================================================================
// GOOGLE GENAI RENDERER
// =============================================================================

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiRenderer writes summaries with Google's Gemini API.
type GeminiRenderer struct {
	client *genai.Client
	model  string
}

// NewGeminiRenderer creates a renderer for the given API key.
func NewGeminiRenderer(ctx context.Context, apiKey, model string) (*GeminiRenderer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiRenderer{client: client, model: model}, nil
}

// Render asks the model for a short plain-English summary.
func (g *GeminiRenderer) Render(ctx context.Context, stats attendance.Stats, entries []attendance.DayEntry) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(BuildPrompt(stats, entries), genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", attendance.UpstreamError("gemini", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", attendance.UpstreamError("gemini", fmt.Errorf("empty response"))
	}
	return text, nil
}

// Name returns the renderer name.
func (g *GeminiRenderer) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}

// BuildPrompt lays out counts and the daily log for the model.
func BuildPrompt(stats attendance.Stats, entries []attendance.DayEntry) string {
	var b strings.Builder
	b.WriteString("You are summarizing a student's attendance.\n\n")
	fmt.Fprintf(&b, "Period: %s to %s\n", stats.From, stats.To)
	fmt.Fprintf(&b, "Total days: %d\n", stats.Total)
	fmt.Fprintf(&b, "Present: %d\n", stats.Present)
	fmt.Fprintf(&b, "Absent: %d\n", stats.Absent)
	fmt.Fprintf(&b, "Holidays: %d (public holidays: %d, declared by the student: %d)\n",
		stats.Holiday, stats.PublicHoliday, stats.DeclaredHoliday)
	fmt.Fprintf(&b, "Attendance rate on working days: %s%%\n\n", stats.AttendanceRate.StringFixed(2))

	b.WriteString("Daily records:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: %s", e.Date, e.Status)
		if e.Status != attendance.StatusPresent && e.Reason != "" {
			fmt.Fprintf(&b, " (%s)", e.Reason)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nWrite a short, clear summary (4-5 lines) in simple English. ")
	b.WriteString("Mention notable absence reasons and any streaks.\n")
	return b.String()
}
