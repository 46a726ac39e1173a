package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cinequery/cinequery/internal/domain"
)

// InsufficientAnswer is the fixed reply when no backend produced anything
// to ground an answer on. Inventing content is never an option.
const InsufficientAnswer = "I don't have enough information in the movie catalog to answer that. Could you rephrase or ask about something else?"

const composerSystemPrompt = `You are a helpful movie assistant that can:
1. Answer questions about movie plots, actors, and themes
2. Provide movie rental statistics and popularity information
3. Make personalized movie recommendations
Please be concise and friendly in your responses. Ground every statement in the retrieved data; if something is missing from it, say so.`

// maxAnswerLength caps runaway collaborator output. The digest itself is
// the grounding, so truncation loses style, not facts.
const maxAnswerLength = 8000

// Composer converts a merged result set plus the original query into the
// final natural-language answer. Phrasing is delegated to the
// text-generation collaborator; if that fails, a deterministic templated
// answer built from the items is returned instead. Compose never errors.
type Composer struct {
	gen    TextGenerator
	logger *zap.Logger
}

// NewComposer creates a response composer.
func NewComposer(gen TextGenerator, logger *zap.Logger) *Composer {
	return &Composer{gen: gen, logger: logger}
}

// Compose produces the answer for one query.
func (c *Composer) Compose(ctx context.Context, query domain.Query, merged domain.MergedResult, history *domain.ConversationState) domain.Answer {
	if len(merged.Items) == 0 {
		return domain.Answer{Text: InsufficientAnswer, Templated: true}
	}

	prompt := c.buildPrompt(query, merged, history)
	out, err := c.gen.Generate(ctx, composerSystemPrompt, prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil {
			c.logger.Warn("composer falling back to templated answer", zap.Error(err))
		}
		return domain.Answer{Text: templatedAnswer(merged), Templated: true}
	}

	out = strings.TrimSpace(out)
	if len(out) > maxAnswerLength {
		out = out[:maxAnswerLength]
	}
	return domain.Answer{Text: out}
}

func (c *Composer) buildPrompt(query domain.Query, merged domain.MergedResult, history *domain.ConversationState) string {
	var sb strings.Builder

	if history != nil {
		if turns := history.Recent(3); len(turns) > 0 {
			sb.WriteString("Previous conversation context:\n")
			for _, turn := range turns {
				sb.WriteString(fmt.Sprintf("User asked: %s\n", truncate(turn.Query.Text, 200)))
				sb.WriteString(fmt.Sprintf("Assistant answered: %s\n", truncate(turn.Answer, 200)))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString(fmt.Sprintf("User question: %s\n\n", query.Text))
	sb.WriteString(buildDigest(merged))

	if merged.UsedSource(domain.BackendStructured) && merged.UsedSource(domain.BackendSemantic) {
		sb.WriteString("\nCreate a coherent, integrated response that combines the rental statistics with the plot information, highlights connections between them, and acknowledges anything either source is missing.")
	} else {
		sb.WriteString("\nAnswer the question from the data above.")
	}
	if merged.Degraded {
		sb.WriteString(" One of the data sources was unavailable, so mention that the answer may be partial.")
	}

	return sb.String()
}

// buildDigest lays the merged items out per source so the collaborator
// can only phrase, not invent.
func buildDigest(merged domain.MergedResult) string {
	var structured, semantic, combined []string

	for _, item := range merged.Items {
		switch item.Source {
		case domain.BackendStructured:
			structured = append(structured, structuredLine(item))
		case domain.BackendSemantic:
			semantic = append(semantic, semanticLine(item))
		case domain.BackendComposite:
			combined = append(combined, structuredLine(item)+" | "+semanticLine(item))
		}
	}

	var sb strings.Builder
	if len(combined) > 0 {
		sb.WriteString("Titles found in both sources:\n")
		for _, line := range combined {
			sb.WriteString("- " + line + "\n")
		}
	}
	if len(structured) > 0 {
		sb.WriteString("Rental catalog data:\n")
		for _, line := range structured {
			sb.WriteString("- " + line + "\n")
		}
	}
	if len(semantic) > 0 {
		sb.WriteString("Plot summary data:\n")
		for _, line := range semantic {
			sb.WriteString("- " + line + "\n")
		}
	}
	return sb.String()
}

func structuredLine(item domain.ResultItem) string {
	parts := []string{item.Title}
	if item.ReleaseYear > 0 {
		parts = append(parts, fmt.Sprintf("year %d", item.ReleaseYear))
	}
	if item.Rating != "" {
		parts = append(parts, "rated "+item.Rating)
	}
	if item.Category != "" {
		parts = append(parts, item.Category)
	}
	if item.Language != "" {
		parts = append(parts, item.Language)
	}
	if item.RentalCount > 0 {
		parts = append(parts, fmt.Sprintf("rented %d times", item.RentalCount))
	}
	return strings.Join(parts, ", ")
}

func semanticLine(item domain.ResultItem) string {
	line := item.Title
	if item.Genres != "" {
		line += " (" + item.Genres + ")"
	}
	if item.Excerpt != "" {
		line += ": " + truncate(item.Excerpt, 400)
	}
	if item.SimilarityScore > 0 {
		line += fmt.Sprintf(" [similarity %.2f]", item.SimilarityScore)
	}
	return line
}

// templatedAnswer lists titles and key fields directly from the merged
// items. Deterministic by construction: no collaborator involved.
func templatedAnswer(merged domain.MergedResult) string {
	var sb strings.Builder
	sb.WriteString("Here's what I found in the catalog:\n")
	for _, item := range merged.Items {
		switch item.Source {
		case domain.BackendSemantic:
			sb.WriteString("- " + semanticLine(item) + "\n")
		default:
			sb.WriteString("- " + structuredLine(item) + "\n")
		}
	}
	if merged.Degraded {
		sb.WriteString("(Some data sources were unavailable, so this may be incomplete.)")
	}
	return strings.TrimSpace(sb.String())
}
