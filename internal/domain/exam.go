package domain

// ExamState is the lifecycle state of an exam session.
type ExamState string

const (
	ExamNotStarted ExamState = "not_started"
	ExamRunning    ExamState = "running"
	ExamPaused     ExamState = "paused"
	ExamFinished   ExamState = "finished"
)

// QuestionView is a question as shown while an exam is running: no correct index, no explanation.
type QuestionView struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"question"`
	Options  []string `json:"options"`
	Category string   `json:"category"`
	Image    string   `json:"image,omitempty"`
}

// ViewOf strips answer data from a question.
func ViewOf(q Question) QuestionView {
	return QuestionView{
		ID:       q.ID,
		Prompt:   q.Prompt,
		Options:  q.Options,
		Category: q.Category,
		Image:    q.Image,
	}
}

// ReviewItem explains one question after an exam has finished.
type ReviewItem struct {
	QuestionID  string `json:"questionId"`
	Selected    int    `json:"selected"`
	Correct     int    `json:"correct"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
}

// Snapshot is the read model of an exam session pushed to subscribers.
type Snapshot struct {
	SessionID        string        `json:"sessionId"`
	Variant          string        `json:"variant"`
	State            ExamState     `json:"state"`
	Current          int           `json:"current"`
	Total            int           `json:"total"`
	Question         *QuestionView `json:"question,omitempty"`
	Answers          []int         `json:"answers"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Pausable         bool          `json:"pausable"`
	Result           *Result       `json:"result,omitempty"`
	Review           []ReviewItem  `json:"review,omitempty"`
}
