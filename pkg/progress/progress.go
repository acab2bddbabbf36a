// Package progress provides clamped progress callbacks for the ranking pipeline.
package progress

// Stage names a step of the find workflow.
type Stage string

const (
	StageCollect Stage = "collect"
	StageHash    Stage = "hash"
	StageMerge   Stage = "merge"
	StageRank    Stage = "rank"
)

// Emit calls cb with clamped processed/total values.
// It is a no-op when cb is nil or total is non-positive.
func Emit(cb func(processed, total int), processed, total int) {
	if cb == nil || total <= 0 {
		return
	}
	cb(clamp(processed, total), total)
}

// EmitStage calls cb with a stage label and clamped processed/total values.
// It is a no-op when cb is nil or total is non-positive.
func EmitStage(cb func(stage Stage, processed, total int), stage Stage, processed, total int) {
	if cb == nil || total <= 0 {
		return
	}
	cb(stage, clamp(processed, total), total)
}

// ForStage adapts a stage callback to a plain processed/total callback.
// It returns nil when cb is nil so callers can skip reporting entirely.
func ForStage(cb func(stage Stage, processed, total int), stage Stage) func(processed, total int) {
	if cb == nil {
		return nil
	}
	return func(processed, total int) {
		EmitStage(cb, stage, processed, total)
	}
}

func clamp(processed, total int) int {
	if processed < 0 {
		return 0
	}
	if processed > total {
		return total
	}
	return processed
}
