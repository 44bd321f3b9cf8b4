package model

// AnswerRequest selects one option of a question.
type AnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Option     *int   `json:"option" binding:"required,min=0,max=3"`
}

// FlagRequest toggles the review flag of a question.
type FlagRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
}

// NavigateRequest moves to a question by its position in the paper.
type NavigateRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}
