package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTallyOverwritesPreviousAnswer(t *testing.T) {
	v := NewVoteTally()
	assert.True(t, v.Record("s1", 0))
	assert.True(t, v.Record("s2", 0))
	assert.True(t, v.Record("s3", 2))
	assert.Equal(t, map[int]int{0: 2, 2: 1}, v.Tally())

	assert.True(t, v.Record("s2", 1))
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1}, v.Tally())
	assert.Equal(t, 3, v.Len())
}

func TestTallyRejectsInvalidAnswers(t *testing.T) {
	v := NewVoteTally()
	assert.False(t, v.Record("s1", -1))
	assert.False(t, v.Record("s1", MaxAnswerIndex+1))
	assert.False(t, v.Record("", 1))
	assert.Empty(t, v.Tally())
}

func TestTallyForgetAndClear(t *testing.T) {
	v := NewVoteTally()
	v.Record("s1", 3)
	v.Record("s2", 3)

	v.Forget("s1")
	assert.Equal(t, map[int]int{3: 1}, v.Tally())

	answers := v.Answers()
	answers["s9"] = 0
	assert.Equal(t, 1, v.Len())

	v.Clear()
	assert.Empty(t, v.Tally())
}
