package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]Stage{
		{StagePending, StageExtracting},
		{StageExtracting, StageParsing},
		{StageParsing, StageTranslating},
		{StageTranslating, StageSaving},
		{StageSaving, StageEmbedding},
		{StageSaving, StageDone},
		{StageEmbedding, StageDone},
	}
	for _, pair := range allowed {
		assert.True(t, canTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	// Failed is reachable from every non-terminal stage.
	for _, from := range []Stage{StagePending, StageExtracting, StageParsing, StageTranslating, StageSaving, StageEmbedding} {
		assert.True(t, canTransition(from, StageFailed), "%s -> failed", from)
	}

	denied := [][2]Stage{
		{StagePending, StageTranslating},
		{StageExtracting, StageDone},
		{StageDone, StageExtracting},
		{StageFailed, StagePending},
		{StageEmbedding, StageSaving},
	}
	for _, pair := range denied {
		assert.False(t, canTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
}

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageDone.Terminal())
	assert.True(t, StageFailed.Terminal())
	assert.False(t, StagePending.Terminal())
	assert.False(t, StageTranslating.Terminal())
}

func TestStageWeightsSumToOne(t *testing.T) {
	sum := weightExtract + weightParse + weightTranslate + weightSave + weightEmbed
	assert.InDelta(t, 1.0, sum, 1e-9)
}
