package proctor

import (
	"math"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// Score grades answers against the answer key: round(100 * correct / total).
// Unanswered questions count as wrong and there is no partial credit.
func Score(questions []model.Question, answers map[string]int) int {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for i := range questions {
		ans, ok := answers[questions[i].ID.String()]
		if ok && ans == questions[i].CorrectIndex {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(questions))))
}

// unansweredCount counts questions with no stored answer.
func unansweredCount(questions []model.Question, answers map[string]int) int {
	n := 0
	for i := range questions {
		if _, ok := answers[questions[i].ID.String()]; !ok {
			n++
		}
	}
	return n
}
