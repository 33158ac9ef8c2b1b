package memory

import "live-quiz-service/internal/domain"

// FallbackQuizID names the built-in set served when no content store is configured.
const FallbackQuizID = "fallback"

// FallbackQuestions returns a fresh copy of the built-in question set.
func FallbackQuestions() []domain.Question {
	return []domain.Question{
		{ID: "1", Text: "What is the capital of France?", Options: []string{"London", "Berlin", "Paris", "Madrid"}, CorrectIndex: 2},
		{ID: "2", Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Saturn"}, CorrectIndex: 1},
		{ID: "3", Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectIndex: 1},
		{ID: "4", Text: "Who painted the Mona Lisa?", Options: []string{"Van Gogh", "Picasso", "Da Vinci", "Rembrandt"}, CorrectIndex: 2},
		{ID: "5", Text: "What is the largest ocean on Earth?", Options: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, CorrectIndex: 3},
	}
}

// FallbackQuiz wraps FallbackQuestions as a loadable quiz.
func FallbackQuiz() domain.Quiz {
	return domain.Quiz{ID: FallbackQuizID, Title: "General knowledge", Questions: FallbackQuestions()}
}
