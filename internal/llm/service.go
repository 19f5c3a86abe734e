package llm

import "context"

// Service bundles the two generation operations behind one collaborator so
// callers hold a single dependency instead of a provider plus free functions.
type Service struct {
	provider Provider
}

func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

func (s *Service) Analyze(ctx context.Context, prompt string) (Analysis, error) {
	return GenerateDealAnalysis(ctx, s.provider, prompt)
}

func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	return AnswerQuestion(ctx, s.provider, question)
}

func (s *Service) ProviderName() string {
	return s.provider.Name()
}
