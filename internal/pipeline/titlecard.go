package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/maauso/appreciation-reel/internal/classify"
	"github.com/maauso/appreciation-reel/internal/media"
	"github.com/maauso/appreciation-reel/internal/metrics"
)

// Caption placeholders.
const (
	PlaceholderRecipient = "{recipient}"
	PlaceholderSubmitter = "{submitter}"
)

// CardSpec describes the cards to generate.
type CardSpec struct {
	// IntroTemplate is the intro caption; {recipient} is replaced by the
	// recipient's display name. Empty disables the intro card.
	IntroTemplate string
	// SubmitterTemplate is the per-clip caption; {submitter} and {recipient}
	// are replaced. Empty disables submitter cards.
	SubmitterTemplate string
	// Duration of every card in seconds.
	Duration float64
	Style    media.CardStyle
}

// TitleCards holds the generated card paths. An empty path means the card
// was not generated.
type TitleCards struct {
	Intro string
	// Submitters has one slot per clip, aligned by index.
	Submitters []string
}

// TitleCardGenerator synthesizes title card segments.
type TitleCardGenerator struct {
	gw      media.Gateway
	spec    CardSpec
	profile media.Profile
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewTitleCardGenerator creates a TitleCardGenerator.
func NewTitleCardGenerator(gw media.Gateway, spec CardSpec, profile media.Profile, m *metrics.Metrics, logger *slog.Logger) *TitleCardGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TitleCardGenerator{gw: gw, spec: spec, profile: profile, metrics: m, logger: logger}
}

// Generate creates the intro card for groupKey and one submitter card per
// clip. A card that fails is omitted and the rest are still generated.
func (g *TitleCardGenerator) Generate(ctx context.Context, groupKey string, clips []classify.Clip, dir string) *TitleCards {
	recipient := DisplayName(groupKey)
	cards := &TitleCards{Submitters: make([]string, len(clips))}

	if g.spec.IntroTemplate != "" {
		text := fillTemplate(g.spec.IntroTemplate, recipient, "")
		cards.Intro = g.synth(ctx, groupKey, text, filepath.Join(dir, "card_intro.mp4"))
	}

	if g.spec.SubmitterTemplate == "" {
		return cards
	}
	for i, clip := range clips {
		text := fillTemplate(g.spec.SubmitterTemplate, recipient, DisplayName(clip.Submitter))
		cards.Submitters[i] = g.synth(ctx, groupKey, text, filepath.Join(dir, fmt.Sprintf("card_%03d.mp4", i)))
	}
	return cards
}

// synth returns the card path, or "" when the card could not be made.
func (g *TitleCardGenerator) synth(ctx context.Context, groupKey, text, output string) string {
	res, err := g.gw.Execute(ctx, media.Operation{
		Kind:     media.OpTitleCard,
		Output:   output,
		Text:     text,
		Duration: g.spec.Duration,
		Style:    g.spec.Style,
		Profile:  g.profile,
	})
	if err != nil {
		g.metrics.TitleCard(metrics.OutcomeOmitted)
		g.logger.Warn("title card omitted",
			slog.String("group", groupKey),
			slog.String("text", text),
			slog.String("error", err.Error()),
		)
		return ""
	}
	g.metrics.TitleCard(metrics.OutcomeGenerated)
	if res.Output == "" {
		return output
	}
	return res.Output
}

// DisplayName turns a delimiter-joined label into title-cased words,
// e.g. "jane_doe" becomes "Jane Doe".
func DisplayName(label string) string {
	words := strings.Fields(strings.ReplaceAll(label, classify.Delimiter, " "))
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

func fillTemplate(tmpl, recipient, submitter string) string {
	return strings.NewReplacer(
		PlaceholderRecipient, recipient,
		PlaceholderSubmitter, submitter,
	).Replace(tmpl)
}
