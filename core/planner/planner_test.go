package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanExtraction(t *testing.T) {
	p := New()

	tests := []struct {
		name      string
		prompt    string
		wantBPM   int
		wantGenre string
		wantMood  string
	}{
		{"full prompt", "A sad jazz song at 80 bpm about rain", 80, "jazz", "sad"},
		{"defaults", "something instrumental", 120, "pop", "neutral"},
		{"genre only", "heavy metal anthem", 120, "metal", "neutral"},
		{"bpm glued to number", "dark edm at 140bpm", 140, "edm", "dark"},
		{"case insensitive", "HAPPY ROCK", 120, "rock", "happy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := p.Plan(tt.prompt)
			assert.Equal(t, tt.wantBPM, plan.BPM)
			assert.Equal(t, tt.wantGenre, plan.Genre)
			assert.Equal(t, tt.wantMood, plan.Mood)
			assert.Equal(t, tt.prompt, plan.OriginalPrompt)
		})
	}
}

func TestPlanDescriptionLeadsWithTags(t *testing.T) {
	p := New()
	plan := p.Plan("a sad jazz song at 80 bpm about rain")
	assert.Equal(t, "jazz, sad, 80 bpm, a sad jazz song at 80 bpm about rain", plan.Description)

	// Without an explicit tempo the bpm tag is omitted.
	plan = p.Plan("happy rock")
	assert.Equal(t, "rock, happy, happy rock", plan.Description)
}

func TestConditioningString(t *testing.T) {
	p := New()
	plan := p.Plan("energetic edm at 128 bpm")
	assert.Contains(t, plan.Conditioning(), "edm music")
	assert.Contains(t, plan.Conditioning(), "energetic mood")
	assert.Contains(t, plan.Conditioning(), "128 BPM")
}
