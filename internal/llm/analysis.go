package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/k2cf/dealdesk/internal/common"
)

const analysisSystemPrompt = "You are a senior commercial lending analyst at K2 Commercial Finance. " +
	"Write concise, factual, professional analysis. Do not invent facts that are not in the deal data. " +
	"Do not use markdown formatting; plain text only."

const advisorSystemPrompt = "You are a knowledgeable commercial lending advisor at K2 Commercial Finance. " +
	"Answer questions about commercial real estate financing clearly and concisely. " +
	"Keep answers focused and practical. Do not use markdown formatting; plain text only."

const analystNotesFallback = "A K2 analyst will review the full package and follow up with next steps, " +
	"including estimated terms, documentation requirements, and timeline expectations."

// Analysis holds the two prose sections of the executive summary. Fallback is
// set when the response did not contain the notes marker and the canned
// analyst notes were substituted.
type Analysis struct {
	ProgramFit   string
	AnalystNotes string
	Fallback     bool
}

// GenerateDealAnalysis runs the analysis prompt through the provider and
// splits the response into the two summary sections.
func GenerateDealAnalysis(ctx context.Context, provider Provider, prompt string) (Analysis, error) {
	logger := common.Logger()
	logger.Info("llm: generating deal analysis", "provider", provider.Name())
	raw, err := provider.Chat(ctx, []Message{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return Analysis{}, err
	}
	analysis := SplitAnalysis(raw)
	if analysis.Fallback {
		logger.Warn("llm: analysis response missing notes marker, using fallback notes")
	}
	return analysis, nil
}

// AnswerQuestion answers a freeform lending question outside the intake flow.
func AnswerQuestion(ctx context.Context, provider Provider, question string) (string, error) {
	logger := common.Logger()
	logger.Info("llm: answering freeform question", "provider", provider.Name())
	reply, err := provider.Chat(ctx, []Message{
		{Role: "system", Content: advisorSystemPrompt},
		{Role: "user", Content: question},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

var (
	programFitHeader   = regexp.MustCompile(`(?i)SECTION 1\s*[—-]*\s*|PROGRAM FIT\s*\(Preliminary\)\s*:?\s*`)
	analystNotesHeader = regexp.MustCompile(`(?i)SECTION 2\s*[—-]*\s*|NOTES FROM K2\s*:?\s*`)
	dividerLines       = regexp.MustCompile(`(?m)^[-—]{3,}[ \t]*\n?`)
)

// SplitAnalysis divides a raw model response at the NOTES FROM K2 marker and
// strips the section headers and divider lines the model tends to echo back.
// When the marker is absent, the whole response becomes the program fit
// section and the canned analyst notes are substituted.
func SplitAnalysis(raw string) Analysis {
	idx := strings.Index(raw, "NOTES FROM K2")
	if idx < 0 {
		return Analysis{
			ProgramFit:   cleanSection(raw, programFitHeader),
			AnalystNotes: analystNotesFallback,
			Fallback:     true,
		}
	}
	return Analysis{
		ProgramFit:   cleanSection(raw[:idx], programFitHeader),
		AnalystNotes: cleanSection(raw[idx:], analystNotesHeader),
	}
}

// cleanSection strips header matches anchored at the start of the section,
// so "SECTION 2 — NOTES FROM K2" loses both the prefix and the title while a
// mid-sentence mention survives.
func cleanSection(s string, header *regexp.Regexp) string {
	s = strings.TrimSpace(s)
	for {
		loc := header.FindStringIndex(s)
		if loc == nil || loc[0] != 0 {
			break
		}
		s = strings.TrimSpace(s[loc[1]:])
	}
	s = dividerLines.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
