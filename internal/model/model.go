package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleTeacher is the default role for registered users.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuestionType classifies a question for paper layout and validation.
type QuestionType string

const (
	// TypeChoice is a single-answer multiple choice question.
	TypeChoice QuestionType = "choice"
	// TypeMulti is a multiple-answer choice question.
	TypeMulti QuestionType = "multi"
	// TypeFillBlank is a fill-in-the-blank question.
	TypeFillBlank QuestionType = "fillblank"
	// TypeSolve is a free-form problem with worked solution.
	TypeSolve QuestionType = "solve"
	// TypeProof is a proof question.
	TypeProof QuestionType = "proof"
)

// RequiresOptions reports whether the question type must carry answer options.
func (t QuestionType) RequiresOptions() bool {
	return t == TypeChoice || t == TypeMulti
}

// Question represents a stored exam question.
type Question struct {
	ID              string       `json:"id"`
	QuestionText    string       `json:"questionText"`
	Options         []string     `json:"options,omitempty"`
	Answer          string       `json:"answer"`
	Explanation     string       `json:"explanation,omitempty"`
	HasGeometry     bool         `json:"hasGeometry"`
	GeometrySVG     string       `json:"geometrySvg,omitempty"`
	GeometryTikZ    string       `json:"geometryTikz,omitempty"`
	KnowledgePoints []string     `json:"knowledgePoints"`
	Difficulty      Difficulty   `json:"difficulty"`
	QuestionType    QuestionType `json:"questionType"`
	Source          string       `json:"source,omitempty"`
	Year            int          `json:"year,omitempty"`
	AIGenerated     bool         `json:"aiGenerated"`
	IsPublic        bool         `json:"isPublic"`
	CreatedBy       string       `json:"createdBy,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// PaperQuestion binds a question into a paper with position and score.
type PaperQuestion struct {
	QuestionID  string `json:"questionId"`
	Order       int    `json:"order"`
	Score       int    `json:"score"`
	CustomLabel string `json:"customLabel,omitempty"`
}

// Paper represents an assembled exam paper.
type Paper struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	TemplateType string          `json:"templateType"`
	TotalScore   int             `json:"totalScore"`
	TimeLimit    int             `json:"timeLimit,omitempty"`
	Tags         []string        `json:"tags"`
	Subject      string          `json:"subject"`
	GradeLevel   string          `json:"gradeLevel"`
	CreatedBy    string          `json:"createdBy,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Questions    []PaperQuestion `json:"questions"`
}

// ReviewStatus represents the state of a question review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Review is a reviewer's verdict on a question.
type Review struct {
	ID         string       `json:"id"`
	QuestionID string       `json:"questionId"`
	ReviewerID string       `json:"reviewerId,omitempty"`
	Status     ReviewStatus `json:"status"`
	Comment    string       `json:"comment,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// RelatedQuestion is a retrieval hit returned by the student ask endpoint.
type RelatedQuestion struct {
	ID           string  `json:"id"`
	QuestionText string  `json:"questionText"`
	Answer       string  `json:"answer"`
	Similarity   float64 `json:"similarity"`
}

// AskResponse is the answer to a student question with supporting sources.
type AskResponse struct {
	Answer           string            `json:"answer"`
	RelatedQuestions []RelatedQuestion `json:"relatedQuestions"`
	Sources          []string          `json:"sources"`
}
