package domain

const (
	// PointsCorrect is awarded for an exactly-right answer.
	PointsCorrect = 5
	// PointsIncorrect is the penalty for a wrong answer.
	PointsIncorrect = -10
)

// ScoreResult is the outcome of scoring one submission. No side effects.
type ScoreResult struct {
	Correct            bool
	Points             int
	CorrectOptionIDs   []string
	CorrectOptionTexts []string
}

// Score validates selected against the question's options and applies the
// scoring rule: exact set equality of selected vs correct ids, +5 on match,
// -10 otherwise. There is no partial credit for multi-select questions.
func Score(q Question, selected []string) (ScoreResult, error) {
	if len(selected) == 0 {
		return ScoreResult{}, ErrInvalidSelection
	}
	if q.Type == QuestionTypeTrueFalse && len(selected) != 1 {
		return ScoreResult{}, ErrInvalidSelection
	}

	known := make(map[string]bool, len(q.Options))
	correct := make(map[string]bool)
	res := ScoreResult{}
	for _, opt := range q.Options {
		known[opt.ID] = true
		if opt.Correct {
			correct[opt.ID] = true
			res.CorrectOptionIDs = append(res.CorrectOptionIDs, opt.ID)
			res.CorrectOptionTexts = append(res.CorrectOptionTexts, opt.Text)
		}
	}

	picked := make(map[string]bool, len(selected))
	for _, id := range selected {
		if !known[id] {
			return ScoreResult{}, ErrOptionNotFound
		}
		if picked[id] {
			// duplicate ids in one submission are malformed
			return ScoreResult{}, ErrInvalidSelection
		}
		picked[id] = true
	}

	res.Correct = len(picked) == len(correct)
	if res.Correct {
		for id := range picked {
			if !correct[id] {
				res.Correct = false
				break
			}
		}
	}
	if res.Correct {
		res.Points = PointsCorrect
	} else {
		res.Points = PointsIncorrect
	}
	return res, nil
}
