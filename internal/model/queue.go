package model

// ViolationRecord is queued for the audit log each time a violation is counted.
type ViolationRecord struct {
	StudentID int    `json:"student_id"`
	ExamID    string `json:"exam_id"`
	Kind      string `json:"kind"`
	Sequence  int    `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

// GradebookEntry is queued after a result is stored so the grade book
// picks up the score.
type GradebookEntry struct {
	StudentID int    `json:"student_id"`
	ExamID    string `json:"exam_id"`
	Score     int    `json:"score"`
	Timestamp int64  `json:"timestamp"`
}
