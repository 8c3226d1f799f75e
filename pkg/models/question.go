package models

// Question is one interactive question an agent asks the user via
// askUserQuestions (spec §4.4).
type Question struct {
	Question    string
	Header      string
	Purpose     string
	Options     []QuestionOption
	Multiple    bool
	AllowCustom bool
}
