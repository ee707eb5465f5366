package studyquiz

// MinStudyTextLength is the minimum number of characters of study material,
// counted after trimming surrounding whitespace.
const MinStudyTextLength = 50

// QuestionsPerSet is the number of questions the generation prompt asks for.
const QuestionsPerSet = 5

// MaxScore is the top of the grading scale.
const MaxScore = 10

// Difficulty is the difficulty level the model assigns to a question
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Skill is the kind of thinking a question exercises
type Skill string

const (
	SkillConceptUnderstanding Skill = "concept_understanding"
	SkillApplication          Skill = "application"
	SkillAnalysis             Skill = "analysis"
)

// Question represents a single generated open-ended question
type Question struct {
	ID         int        `json:"id"`
	Question   string     `json:"question"`
	Difficulty Difficulty `json:"difficulty"`
	Skill      Skill      `json:"skill"`
}

// QuestionSet is the document the model returns for a piece of study text.
// Nothing enforces the count or the enum values unless strict validation is on.
type QuestionSet struct {
	Questions []Question `json:"questions"`
}

// Evaluation is the model's grading of a single free-text answer
type Evaluation struct {
	Score              float64  `json:"score"`
	OutOf              float64  `json:"outOf"`
	Strengths          []string `json:"strengths"`
	AreasToImprove     []string `json:"areasToImprove"`
	NextStepSuggestion string   `json:"nextStepSuggestion"`
}

// GenerationRequest is the body of POST /generate-questions
type GenerationRequest struct {
	Text string `json:"text"`
}

// EvaluationRequest is the body of POST /evaluate-answer
type EvaluationRequest struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	ContextText string `json:"contextText"`
}
