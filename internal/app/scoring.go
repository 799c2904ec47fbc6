package app

import (
	"math"
	"time"

	"autoescola-portal/internal/domain"
)

// CountCorrect returns how many answer slots match their question's correct option.
// Unanswered slots never match.
func CountCorrect(questions []domain.Question, answers []int) int {
	correct := 0
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		if answers[i] != domain.Unanswered && answers[i] == q.Correct {
			correct++
		}
	}
	return correct
}

// ScorePercent rounds correct/total to the nearest integer percentage.
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Passed reports whether a score meets the fixed pass threshold.
func Passed(score int) bool {
	return score >= domain.PassThreshold
}

// PointsFor is the gamification award of a bank exam score.
func PointsFor(score int) int {
	if score <= domain.PointsBaseline {
		return 0
	}
	return score - domain.PointsBaseline
}

// scoreSession builds the Result of a finished session.
func scoreSession(questions []domain.Question, answers []int, startedAt, endedAt time.Time, elapsed time.Duration) domain.Result {
	correct := CountCorrect(questions, answers)
	score := ScorePercent(correct, len(questions))
	passed := Passed(score)

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	status := domain.ResultFailed
	if passed {
		status = domain.ResultApproved
	}
	seconds := int(elapsed / time.Second)

	return domain.Result{
		Type:            domain.AttemptTypeSimulado,
		QuestionIDs:     ids,
		Answers:         append([]int(nil), answers...),
		TotalQuestions:  len(questions),
		CorrectAnswers:  correct,
		Score:           score,
		Passed:          passed,
		Status:          status,
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		ElapsedSeconds:  seconds,
		DurationMinutes: int(math.Round(float64(seconds) / 60)),
		CreatedAt:       endedAt,
	}
}

func reviewOf(questions []domain.Question, answers []int) []domain.ReviewItem {
	items := make([]domain.ReviewItem, len(questions))
	for i, q := range questions {
		selected := domain.Unanswered
		if i < len(answers) {
			selected = answers[i]
		}
		items[i] = domain.ReviewItem{
			QuestionID:  q.ID,
			Selected:    selected,
			Correct:     q.Correct,
			IsCorrect:   selected == q.Correct,
			Explanation: q.Explanation,
		}
	}
	return items
}
