package progress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"duprank/pkg/progress"
)

func TestEmit_NilCallback(_ *testing.T) {
	// Should not panic.
	progress.Emit(nil, 1, 10)
}

func TestEmit_NonPositiveTotal(t *testing.T) {
	for _, total := range []int{0, -1} {
		called := false
		progress.Emit(func(_, _ int) { called = true }, 1, total)
		assert.False(t, called)
	}
}

func TestEmit_Clamps(t *testing.T) {
	tests := []struct {
		name      string
		processed int
		want      int
	}{
		{"negative", -5, 0},
		{"overflow", 15, 10},
		{"in range", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotP, gotT int
			progress.Emit(func(processed, total int) {
				gotP = processed
				gotT = total
			}, tt.processed, 10)
			assert.Equal(t, tt.want, gotP)
			assert.Equal(t, 10, gotT)
		})
	}
}

func TestEmitStage_PassesThrough(t *testing.T) {
	var gotStage progress.Stage
	var gotP, gotT int
	progress.EmitStage(func(stage progress.Stage, processed, total int) {
		gotStage = stage
		gotP = processed
		gotT = total
	}, progress.StageRank, 15, 10)

	assert.Equal(t, progress.StageRank, gotStage)
	assert.Equal(t, 10, gotP)
	assert.Equal(t, 10, gotT)
}

func TestEmitStage_ZeroTotal(t *testing.T) {
	called := false
	progress.EmitStage(func(_ progress.Stage, _, _ int) { called = true }, progress.StageHash, 1, 0)
	assert.False(t, called)
}

func TestForStage(t *testing.T) {
	assert.Nil(t, progress.ForStage(nil, progress.StageMerge))

	var gotStage progress.Stage
	var gotP int
	cb := progress.ForStage(func(stage progress.Stage, processed, _ int) {
		gotStage = stage
		gotP = processed
	}, progress.StageCollect)

	cb(3, 4)
	assert.Equal(t, progress.StageCollect, gotStage)
	assert.Equal(t, 3, gotP)
}
