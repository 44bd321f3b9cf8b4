package model

// Student is the identity snapshot a session captures at login time.
type Student struct {
	ID        int    `json:"id"`
	NIS       string `json:"nis"`
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
}

// ExamLoginRequest is the payload a student sends to enter an exam.
// Empty fields pass binding and are rejected by the login gate in order.
type ExamLoginRequest struct {
	NIS      string `json:"nis" binding:"omitempty,max=20,numeric"`
	Semester string `json:"semester" binding:"omitempty,semester"`
}
