package model

// Question is an item of the question bank.
type Question struct {
	ID           int    `json:"question_id"`
	SkillID      int    `json:"skill_id"`
	SkillName    string `json:"skill_name"`
	QuestionText string `json:"question_text"`
	IsAvailable  bool   `json:"is_available"`
}

// ChoiceOption belongs to exactly one question. Each question is expected
// to have exactly one correct option.
type ChoiceOption struct {
	ID         int    `json:"option_id"`
	QuestionID int    `json:"question_id"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
}

// OptionOutput is an option as returned to callers; IsCorrect is hidden
// until the owning session is completed.
type OptionOutput struct {
	ID         int    `json:"option_id"`
	OptionText string `json:"option_text"`
	IsCorrect  *bool  `json:"is_correct,omitempty"`
}

// Skill groups questions for weighted sampling and reporting.
type Skill struct {
	ID   int    `json:"skill_id"`
	Name string `json:"skill_name"`
}

// QuestionBankFile is the seed file format read by cmd/seed-questions.
type QuestionBankFile struct {
	Skills []struct {
		Name      string `yaml:"name"`
		Questions []struct {
			Text      string `yaml:"text"`
			Available *bool  `yaml:"available"`
			Options   []struct {
				Text    string `yaml:"text"`
				Correct bool   `yaml:"correct"`
			} `yaml:"options"`
		} `yaml:"questions"`
	} `yaml:"skills"`
}
