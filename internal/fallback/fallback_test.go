package fallback

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPersonalizedAnswersIsFreshPerCall(t *testing.T) {
	first := PersonalizedAnswers()
	first.DykCards[0].Title = "mutated"
	first.FlashCards = nil

	second := PersonalizedAnswers()
	require.Equal(t, "Did You Know?", second.DykCards[0].Title)
	require.Len(t, second.FlashCards, 2)
	require.Equal(t, "How much screen time is recommended?", second.FlashCards[1].Question)
}

func TestAssistantActivationWireShape(t *testing.T) {
	got := AssistantActivation()
	encoded, err := json.Marshal(got)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"cards": [{
			"id": "1",
			"type": "tip",
			"title": "Tinu Tip",
			"content": "Nutrition plays a key role in your child's mood and behavior.",
			"image_url": null
		}],
		"chips": [
			{"id":"1","label":"Nutrition Tips"},
			{"id":"2","label":"Sleep Schedule"},
			{"id":"3","label":"Learning Activities"},
			{"id":"4","label":"Behavior Management"}
		]
	}`, string(encoded))

	labels := make([]string, 0, len(got.Chips))
	for _, chip := range got.Chips {
		labels = append(labels, chip.DisplayText())
	}
	require.Equal(t, []string{"Nutrition Tips", "Sleep Schedule", "Learning Activities", "Behavior Management"}, labels)
}
