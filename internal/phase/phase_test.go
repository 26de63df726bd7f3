package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLadderOrder(t *testing.T) {
	ladder := Ladder()
	assert.Len(t, ladder, 9)
	for i := 1; i < len(ladder); i++ {
		assert.Less(t, int(ladder[i-1]), int(ladder[i]), "ladder must be strictly increasing")
	}
}

func TestSatisfies(t *testing.T) {
	assert.True(t, Satisfies(SemanticAnalysis, Conversion))
	assert.True(t, Satisfies(Conversion, Conversion))
	assert.False(t, Satisfies(Parsing, Conversion))
}

func TestValid(t *testing.T) {
	assert.True(t, Initialization.Valid())
	assert.True(t, Finalization.Valid())
	assert.False(t, Phase(-1).Valid())
	assert.False(t, Phase(99).Valid())
}

func TestStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "conversion", Conversion.String())
	assert.Equal(t, "unknown", Phase(99).String())
}

func TestAtLeastHelpers(t *testing.T) {
	assert.False(t, AtLeastConversion(Parsing))
	assert.True(t, AtLeastConversion(Conversion))
	assert.False(t, AtLeastSemanticAnalysis(Conversion))
	assert.True(t, AtLeastSemanticAnalysis(SemanticAnalysis))
}
