package catalog

import (
	"strings"
	"time"

	"tinypal/internal/model"
)

// Screens the app can open.
const (
	ScreenDidYouKnow = "did_you_know"
	ScreenFlashCards = "flash_cards"
)

// Assistant contexts sent on activation.
const (
	ContextDidYouKnow = "dyk"
	ContextFlashCard  = "flash_card"
)

const (
	DefaultTopic    = "nutrition_impacts_mood"
	DefaultParentID = "EXAMPLEPARENT"
	DefaultChildID  = "EXAMPLECHILD"
)

var demoTimestamp = time.Date(2025, 10, 14, 7, 25, 31, 482_000_000, time.UTC)

var screenContexts = map[string]string{
	ScreenDidYouKnow: ContextDidYouKnow,
	ScreenFlashCards: ContextFlashCard,
}

func HomeMenu() model.HomeMenu {
	return model.HomeMenu{
		Title:    "TinyPal Learning App",
		Subtitle: "Choose a screen to explore:",
		Entries: []model.HomeEntry{
			{Screen: ScreenDidYouKnow, Label: "📚 Did You Know Screen"},
			{Screen: ScreenFlashCards, Label: "🎴 Flash Cards Screen"},
		},
		Features: []string{
			"Educational parenting content",
			"Interactive flash cards",
			"Tinu AI assistant",
			"Responsive design",
		},
	}
}

// DemoResponses is the fixed questionnaire submitted when a screen opens.
func DemoResponses() []model.QuestionResponse {
	return []model.QuestionResponse{
		{
			QuestionID:        "q006_tantrums",
			SelectedChoiceIDs: []string{"choice_b", "choice_c"},
			Timestamp:         demoTimestamp,
		},
		{
			QuestionID:        "q009_language_dev",
			SelectedChoiceIDs: []string{"choice_c", "choice_a"},
			Timestamp:         demoTimestamp,
		},
		{
			QuestionID:        "q008_development_concerns",
			SelectedChoiceIDs: []string{"open_response"},
			OpenResponseText:  "His cognitive abilities being stunted by overuse of mobiles",
			Timestamp:         demoTimestamp,
		},
	}
}

// AssistantContext maps a screen name to the context value the assistant
// endpoint expects.
func AssistantContext(screen string) (string, bool) {
	ctx, ok := screenContexts[strings.TrimSpace(strings.ToLower(screen))]
	return ctx, ok
}

func IsScreen(screen string) bool {
	_, ok := AssistantContext(screen)
	return ok
}
