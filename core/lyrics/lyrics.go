package lyrics

import (
	"fmt"
	"strings"
)

// instrumentalMarker labels sections that carry no vocal line.
const instrumentalMarker = "[Instrumental]"

// Section is a named block of lyric lines in playback order.
type Section struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

// Lyrics is an ordered sequence of sections matching the song structure.
type Lyrics struct {
	Sections []Section `json:"sections"`
}

// WordTiming is a rough start/end estimate for one lyric word.
type WordTiming struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

type moodTemplate struct {
	verse  []string
	chorus []string
}

// Generator produces lyrics for a mood and song structure. The text is
// template-based; an LLM writer can replace it behind the same Lyrics shape.
type Generator struct {
	templates map[string]moodTemplate
}

// NewGenerator creates a Generator with the built-in mood templates.
func NewGenerator() *Generator {
	return &Generator{
		templates: map[string]moodTemplate{
			"happy": {
				verse: []string{
					"Dancing through the day",
					"Sunshine lights the way",
					"Feeling so alive",
					"Good vibes never die",
				},
				chorus: []string{
					"We're flying high tonight",
					"Everything feels right",
					"Hearts are shining bright",
					"Living in the light",
				},
			},
			"sad": {
				verse: []string{
					"Walking in the rain",
					"Feeling all the pain",
					"Memories remain",
					"Nothing stays the same",
				},
				chorus: []string{
					"Missing you tonight",
					"Fading from my sight",
					"Lost without your light",
					"Can't make this right",
				},
			},
			"energetic": {
				verse: []string{
					"Feel the rhythm rise",
					"Fire in our eyes",
					"Ready for the night",
					"Gonna reach new heights",
				},
				chorus: []string{
					"Turn it up, let's go",
					"Feel the energy flow",
					"We're unstoppable",
					"Watch us steal the show",
				},
			},
		},
	}
}

// Generate builds lyrics for the given mood across the structure. Unknown
// moods fall back to the happy template; intro/outro sections come back as
// instrumental markers.
func (g *Generator) Generate(mood string, structure []string) Lyrics {
	tmpl, ok := g.templates[strings.ToLower(mood)]
	if !ok {
		tmpl = g.templates["happy"]
	}

	out := Lyrics{Sections: make([]Section, 0, len(structure))}
	for _, section := range structure {
		lower := strings.ToLower(section)
		var lines []string
		switch {
		case strings.Contains(lower, "verse"):
			lines = tmpl.verse
		case strings.Contains(lower, "chorus"):
			lines = tmpl.chorus
		default:
			lines = []string{instrumentalMarker}
		}
		out.Sections = append(out.Sections, Section{Name: section, Lines: lines})
	}
	return out
}

// FormatForConditioning flattens vocal lines into the single slash-joined
// string the generation model expects. Instrumental sections are skipped.
func (l Lyrics) FormatForConditioning() string {
	var lines []string
	for _, section := range l.Sections {
		if len(section.Lines) == 1 && section.Lines[0] == instrumentalMarker {
			continue
		}
		lines = append(lines, section.Lines...)
	}
	return strings.Join(lines, " / ")
}

// Aligner estimates word-level timings for lyrics. The current estimate is
// a uniform distribution over the song duration; a forced aligner can slot
// in behind the same interface.
type Aligner struct{}

// NewAligner creates an Aligner.
func NewAligner() *Aligner {
	return &Aligner{}
}

// EstimateTimings spreads the lyric words uniformly across the duration.
func (a *Aligner) EstimateTimings(text string, durationSec float64) []WordTiming {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	perWord := durationSec / float64(len(words))
	timings := make([]WordTiming, len(words))
	current := 0.0
	for i, word := range words {
		timings[i] = WordTiming{Start: current, End: current + perWord, Word: word}
		current += perWord
	}
	return timings
}

// StructureHint prefixes the lyric text with the song structure so the
// model sees section boundaries in its conditioning.
func (a *Aligner) StructureHint(text string, structure []string) string {
	return fmt.Sprintf("[Song with structure: %s] %s", strings.Join(structure, ", "), text)
}
