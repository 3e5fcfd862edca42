package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssistantContext(t *testing.T) {
	ctx, ok := AssistantContext("did_you_know")
	require.True(t, ok)
	require.Equal(t, "dyk", ctx)

	ctx, ok = AssistantContext(" Flash_Cards ")
	require.True(t, ok)
	require.Equal(t, "flash_card", ctx)

	_, ok = AssistantContext("settings")
	require.False(t, ok)
	require.False(t, IsScreen(""))
}

func TestHomeMenuListsEveryScreen(t *testing.T) {
	menu := HomeMenu()
	require.Equal(t, "TinyPal Learning App", menu.Title)
	require.Len(t, menu.Entries, 2)
	for _, entry := range menu.Entries {
		require.True(t, IsScreen(entry.Screen), entry.Screen)
	}
}

func TestDemoResponsesWireShape(t *testing.T) {
	encoded, err := json.Marshal(DemoResponses())
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"question_id":"q006_tantrums","selected_choice_ids":["choice_b","choice_c"],"open_response_text":"","timestamp":"2025-10-14T07:25:31.482Z"},
		{"question_id":"q009_language_dev","selected_choice_ids":["choice_c","choice_a"],"open_response_text":"","timestamp":"2025-10-14T07:25:31.482Z"},
		{"question_id":"q008_development_concerns","selected_choice_ids":["open_response"],"open_response_text":"His cognitive abilities being stunted by overuse of mobiles","timestamp":"2025-10-14T07:25:31.482Z"}
	]`, string(encoded))
}
