package intake

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the immutable question catalog. It is built once at startup and
// passed by reference to the navigator and the session orchestrator.
type Catalog struct {
	questions []Question
	index     map[string]int
	intros    map[string]string
	first     string
}

type catalogFile struct {
	First     string            `yaml:"first"`
	Intros    map[string]string `yaml:"intros"`
	Questions []questionSpec    `yaml:"questions"`
}

type questionSpec struct {
	ID          string    `yaml:"id"`
	Prompt      string    `yaml:"prompt"`
	Kind        Kind      `yaml:"kind"`
	Options     []string  `yaml:"options"`
	Placeholder string    `yaml:"placeholder"`
	Min         *float64  `yaml:"min"`
	Max         *float64  `yaml:"max"`
	Optional    bool      `yaml:"optional"`
	Format      Format    `yaml:"format"`
	Next        *ruleSpec `yaml:"next"`
}

type ruleSpec struct {
	Goto    string     `yaml:"goto"`
	On      string     `yaml:"on"`
	Cases   []caseSpec `yaml:"cases"`
	Default string     `yaml:"default"`
}

type caseSpec struct {
	Equals string `yaml:"equals"`
	Goto   string `yaml:"goto"`
}

// LoadCatalog parses and validates the embedded question catalog.
func LoadCatalog() (*Catalog, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("catalog has no questions")
	}

	cat := &Catalog{
		questions: make([]Question, 0, len(file.Questions)),
		index:     make(map[string]int, len(file.Questions)),
		intros:    file.Intros,
		first:     file.First,
	}
	for i, spec := range file.Questions {
		q, err := buildQuestion(spec)
		if err != nil {
			return nil, fmt.Errorf("question %d (%s): %w", i+1, spec.ID, err)
		}
		if _, dup := cat.index[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		cat.index[q.ID] = len(cat.questions)
		cat.questions = append(cat.questions, q)
	}

	if err := cat.validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func buildQuestion(spec questionSpec) (Question, error) {
	if spec.ID == "" {
		return Question{}, fmt.Errorf("missing id")
	}
	if spec.Prompt == "" {
		return Question{}, fmt.Errorf("missing prompt")
	}
	switch spec.Kind {
	case KindChoice, KindNumber, KindText:
	default:
		return Question{}, fmt.Errorf("unknown kind %q", spec.Kind)
	}
	switch spec.Format {
	case FormatPlain, FormatCurrency, FormatPercent:
	default:
		return Question{}, fmt.Errorf("unknown format %q", spec.Format)
	}
	if spec.Kind == KindChoice {
		if len(spec.Options) == 0 {
			return Question{}, fmt.Errorf("choice question has no options")
		}
		seen := make(map[string]struct{}, len(spec.Options))
		for _, opt := range spec.Options {
			if opt == "" {
				return Question{}, fmt.Errorf("empty option label")
			}
			if _, dup := seen[opt]; dup {
				return Question{}, fmt.Errorf("duplicate option %q", opt)
			}
			seen[opt] = struct{}{}
		}
	} else if len(spec.Options) > 0 {
		return Question{}, fmt.Errorf("options on non-choice question")
	}

	q := Question{
		ID:          spec.ID,
		Prompt:      spec.Prompt,
		Kind:        spec.Kind,
		Options:     append([]string(nil), spec.Options...),
		Placeholder: spec.Placeholder,
		Min:         spec.Min,
		Max:         spec.Max,
		Optional:    spec.Optional,
		Format:      spec.Format,
	}
	if spec.Next != nil {
		rule := &Rule{Goto: spec.Next.Goto, On: spec.Next.On, Default: spec.Next.Default}
		for _, c := range spec.Next.Cases {
			rule.Cases = append(rule.Cases, Case{Equals: c.Equals, Goto: c.Goto})
		}
		if rule.Goto == "" {
			if rule.On == "" || rule.Default == "" {
				return Question{}, fmt.Errorf("conditional rule requires on and default")
			}
		} else if rule.On != "" || len(rule.Cases) > 0 || rule.Default != "" {
			return Question{}, fmt.Errorf("goto rule cannot carry cases")
		}
		q.Next = rule
	}
	return q, nil
}

func (c *Catalog) validate() error {
	if _, ok := c.index[c.first]; !ok {
		return fmt.Errorf("first question %q not in catalog", c.first)
	}
	for id := range c.intros {
		if _, ok := c.index[id]; !ok {
			return fmt.Errorf("intro references unknown question %q", id)
		}
	}
	for _, q := range c.questions {
		if q.Next == nil {
			continue
		}
		for _, target := range q.Next.targets() {
			if target == Terminal {
				continue
			}
			if _, ok := c.index[target]; !ok {
				return fmt.Errorf("question %q successor rule references unknown id %q", q.ID, target)
			}
		}
	}
	return nil
}

// Get returns the question with the given id.
func (c *Catalog) Get(id string) (Question, bool) {
	idx, ok := c.index[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[idx], true
}

// FirstQuestionID returns the fixed entry point of the flow.
func (c *Catalog) FirstQuestionID() string {
	return c.first
}

// Len returns the number of questions in the catalog.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// Questions returns the catalog in declaration order.
func (c *Catalog) Questions() []Question {
	return append([]Question(nil), c.questions...)
}

// Intro returns the section intro shown when the flow first reaches id, or ""
// when the question opens no section.
func (c *Catalog) Intro(id string) string {
	return c.intros[id]
}

// after returns the id following id in declaration order, or Terminal.
func (c *Catalog) after(id string) string {
	idx, ok := c.index[id]
	if !ok || idx >= len(c.questions)-1 {
		return Terminal
	}
	return c.questions[idx+1].ID
}
