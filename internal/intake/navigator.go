package intake

// flowSafetyMargin bounds the traversal beyond catalog size. A correct
// catalog terminates well inside this; the margin only matters if the cycle
// guard ever has to fire.
const flowSafetyMargin = 10

// Next computes the question following currentID under the given answer set.
// The boolean is false when the flow terminates after currentID. Successor
// rules are evaluated against the answers as passed in, so callers advancing
// past a just-answered question must include that answer.
func Next(cat *Catalog, currentID string, answers Answers) (string, bool) {
	q, ok := cat.Get(currentID)
	if !ok {
		return "", false
	}
	target := cat.after(currentID)
	if q.Next != nil {
		target = q.Next.Apply(answers)
	}
	if target == Terminal {
		return "", false
	}
	if _, ok := cat.Get(target); !ok {
		return "", false
	}
	return target, true
}

// Flow computes the full question path this answer set produces, starting at
// the catalog's first question. It is recomputed from scratch on every call
// so the path always reflects the current answers, including mid-flow edits
// that flip a branch. A revisited id stops the walk (cycle guard).
func Flow(cat *Catalog, answers Answers) []string {
	visited := make(map[string]struct{}, cat.Len())
	flow := make([]string, 0, cat.Len())
	currentID := cat.FirstQuestionID()
	limit := cat.Len() + flowSafetyMargin

	for steps := 0; steps < limit; steps++ {
		if _, seen := visited[currentID]; seen {
			break
		}
		visited[currentID] = struct{}{}
		flow = append(flow, currentID)
		next, ok := Next(cat, currentID, answers)
		if !ok {
			break
		}
		currentID = next
	}
	return flow
}

// Progress reports how many questions on the current path have answers, and
// the path's total length. Answers for questions that fell off the path after
// a branch edit are not counted.
func Progress(cat *Catalog, answers Answers) (answered, total int) {
	flow := Flow(cat, answers)
	for _, id := range flow {
		if answers.Has(id) {
			answered++
		}
	}
	total = len(flow)
	if total < 1 {
		total = 1
	}
	return answered, total
}
