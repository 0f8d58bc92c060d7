package lyrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFollowsStructure(t *testing.T) {
	g := NewGenerator()
	structure := []string{"Intro", "Verse", "Chorus", "Verse", "Outro"}

	out := g.Generate("sad", structure)
	require.Len(t, out.Sections, 5)

	assert.Equal(t, "Intro", out.Sections[0].Name)
	assert.Equal(t, []string{"[Instrumental]"}, out.Sections[0].Lines)
	assert.Equal(t, "Walking in the rain", out.Sections[1].Lines[0])
	assert.Equal(t, "Missing you tonight", out.Sections[2].Lines[0])
	assert.Equal(t, []string{"[Instrumental]"}, out.Sections[4].Lines)
}

func TestGenerateUnknownMoodFallsBack(t *testing.T) {
	g := NewGenerator()
	out := g.Generate("melancholic-dubstep", []string{"Verse"})
	require.Len(t, out.Sections, 1)
	assert.Equal(t, "Dancing through the day", out.Sections[0].Lines[0])
}

func TestFormatForConditioningSkipsInstrumental(t *testing.T) {
	g := NewGenerator()
	out := g.Generate("happy", []string{"Intro", "Verse", "Outro"})

	formatted := out.FormatForConditioning()
	assert.NotContains(t, formatted, "[Instrumental]")
	assert.Contains(t, formatted, "Dancing through the day / Sunshine lights the way")
}

func TestEstimateTimingsUniform(t *testing.T) {
	a := NewAligner()

	timings := a.EstimateTimings("one two three four", 8.0)
	require.Len(t, timings, 4)
	assert.InDelta(t, 0.0, timings[0].Start, 1e-9)
	assert.InDelta(t, 2.0, timings[0].End, 1e-9)
	assert.InDelta(t, 6.0, timings[3].Start, 1e-9)
	assert.InDelta(t, 8.0, timings[3].End, 1e-9)
	assert.Equal(t, "four", timings[3].Word)

	assert.Nil(t, a.EstimateTimings("", 10))
}

func TestStructureHint(t *testing.T) {
	a := NewAligner()
	hint := a.StructureHint("la la la", []string{"Intro", "Chorus"})
	assert.Equal(t, "[Song with structure: Intro, Chorus] la la la", hint)
}
