package intake

// Kind is the input type of a question.
type Kind string

const (
	KindChoice Kind = "choice"
	KindNumber Kind = "number"
	KindText   Kind = "text"
)

// Format tags how a numeric answer is rendered for display.
type Format string

const (
	FormatPlain    Format = ""
	FormatCurrency Format = "currency"
	FormatPercent  Format = "percent"
)

// Terminal is the marker a successor rule may name instead of a question id
// to end the flow.
const Terminal = "__end__"

// Question is one catalog entry. Questions are immutable after catalog load.
type Question struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Kind        Kind     `json:"kind"`
	Options     []string `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Optional    bool     `json:"optional,omitempty"`
	Format      Format   `json:"format,omitempty"`
	Next        *Rule    `json:"-"`
}

// Rule is a declarative successor rule. Either Goto names the unconditional
// next question, or the answer for On is matched against Cases in order with
// Default as the fallthrough target. Targets are question ids or Terminal.
type Rule struct {
	Goto    string
	On      string
	Cases   []Case
	Default string
}

// Case matches one choice label to a successor.
type Case struct {
	Equals string
	Goto   string
}

// Apply evaluates the rule against the answer set and returns the successor
// id (or Terminal).
func (r *Rule) Apply(answers Answers) string {
	if r.Goto != "" {
		return r.Goto
	}
	if answer, ok := answers.Text(r.On); ok {
		for _, c := range r.Cases {
			if c.Equals == answer {
				return c.Goto
			}
		}
	}
	return r.Default
}

// targets lists every id the rule can yield, for catalog validation.
func (r *Rule) targets() []string {
	if r.Goto != "" {
		return []string{r.Goto}
	}
	out := make([]string, 0, len(r.Cases)+1)
	for _, c := range r.Cases {
		out = append(out, c.Goto)
	}
	return append(out, r.Default)
}
