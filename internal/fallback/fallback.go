// Package fallback holds the content served in place of upstream data when
// the upstream cannot be reached. Every call builds fresh values.
package fallback

import (
	"encoding/json"

	"tinypal/internal/model"
)

func PersonalizedAnswers() model.PersonalizedAnswers {
	return model.PersonalizedAnswers{
		DykCards: []model.DykCard{
			{
				ID:      "1",
				Title:   "Did You Know?",
				Content: "Children learn best through play and exploration in their early years.",
			},
			{
				ID:      "2",
				Title:   "Parenting Tip",
				Content: "Reading to your child for 15 minutes daily can significantly improve their language skills.",
			},
		},
		FlashCards: []model.FlashCard{
			{
				ID:       "1",
				Question: "What is the best way to handle tantrums?",
				Answer:   "Stay calm, acknowledge feelings, and provide comfort while setting clear boundaries.",
			},
			{
				ID:       "2",
				Question: "How much screen time is recommended?",
				Answer:   "For children 2-5 years, limit to 1 hour per day of high-quality programming.",
			},
		},
	}
}

func AssistantActivation() model.AssistantActivation {
	title := "Tinu Tip"
	content := "Nutrition plays a key role in your child's mood and behavior."
	return model.AssistantActivation{
		Cards: []model.TinuCard{
			{
				Title:   &title,
				Content: &content,
				Extra: map[string]json.RawMessage{
					"id":   json.RawMessage(`"1"`),
					"type": json.RawMessage(`"tip"`),
				},
			},
		},
		Chips: []model.Chip{
			model.Chip(`{"id":"1","label":"Nutrition Tips"}`),
			model.Chip(`{"id":"2","label":"Sleep Schedule"}`),
			model.Chip(`{"id":"3","label":"Learning Activities"}`),
			model.Chip(`{"id":"4","label":"Behavior Management"}`),
		},
	}
}
