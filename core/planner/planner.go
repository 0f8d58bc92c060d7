package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Plan is the structured musical metadata extracted from a free-text prompt.
// It drives both the model conditioning string and the stitcher's beat grid.
type Plan struct {
	OriginalPrompt string   `json:"originalPrompt"`
	BPM            int      `json:"bpm"`
	Key            string   `json:"key"`
	Genre          string   `json:"genre"`
	Mood           string   `json:"mood"`
	Instruments    []string `json:"instruments"`
	Structure      []string `json:"structure"`
	Description    string   `json:"description"`
}

// Planner parses natural-language prompts into a Plan. The extraction is
// rule-based keyword matching; an LLM-backed planner can replace it behind
// the same Plan shape.
type Planner struct {
	genres []string
	moods  []string
}

var bpmPattern = regexp.MustCompile(`(\d+)\s*bpm`)

// New creates a Planner with the default genre and mood vocabularies.
func New() *Planner {
	return &Planner{
		genres: []string{"rock", "pop", "jazz", "classical", "edm", "hip hop", "rap", "metal", "country", "blues"},
		moods:  []string{"happy", "sad", "energetic", "relaxed", "dark", "romantic", "angry", "uplifting"},
	}
}

// Plan analyzes the prompt and returns a structured plan. Unrecognized
// prompts fall back to a neutral pop default rather than failing.
func (p *Planner) Plan(prompt string) Plan {
	lower := strings.ToLower(prompt)

	plan := Plan{
		OriginalPrompt: prompt,
		BPM:            120,
		Key:            "C Major",
		Genre:          "pop",
		Mood:           "neutral",
		Instruments:    []string{},
		Structure:      []string{"Intro", "Verse", "Chorus", "Outro"},
		Description:    prompt,
	}

	hasBPM := false
	if m := bpmPattern.FindStringSubmatch(lower); m != nil {
		if bpm, err := strconv.Atoi(m[1]); err == nil && bpm > 0 {
			plan.BPM = bpm
			hasBPM = true
		}
	}

	for _, g := range p.genres {
		if strings.Contains(lower, g) {
			plan.Genre = g
			break
		}
	}
	for _, m := range p.moods {
		if strings.Contains(lower, m) {
			plan.Mood = m
			break
		}
	}

	// The model responds best to comma-separated tags ahead of the prose.
	tags := []string{plan.Genre, plan.Mood}
	if hasBPM {
		tags = append(tags, fmt.Sprintf("%d bpm", plan.BPM))
	}
	plan.Description = strings.Join(tags, ", ") + ", " + prompt

	return plan
}

// Conditioning builds the style string handed to the generation model.
func (p Plan) Conditioning() string {
	instruments := strings.Join(p.Instruments, ", ")
	return fmt.Sprintf("%s music, %s mood, %s, %d BPM, instruments: %s",
		p.Genre, p.Mood, p.Key, p.BPM, instruments)
}
