package evaluator

import (
	"encoding/json"
	"math"
	"time"
)

// ClassScore is a float64 that marshals NaN and infinities as null.
// Per-class IoU is NaN for classes never observed, and encoding/json
// refuses to emit NaN.
type ClassScore float64

// MarshalJSON implements json.Marshaler.
func (s ClassScore) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// IsNaN reports whether the score is undefined.
func (s ClassScore) IsNaN() bool { return math.IsNaN(float64(s)) }

// MemoryMetrics captures memory usage statistics for a run.
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
}

// Report captures the derived statistics and accounting of one evaluation
// run.
type Report struct {
	Timestamp       time.Time     `json:"timestamp"`
	TotalDuration   time.Duration `json:"total_duration"`
	NumClasses      int           `json:"num_classes"`
	Workers         int           `json:"workers"`
	BatchCount      int           `json:"batch_count"`
	PixelCount      int64         `json:"pixel_count"`
	PixelsPerSecond float64       `json:"pixels_per_second"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
	ClassIoU        []ClassScore  `json:"class_iou"`
	MeanIoU         ClassScore    `json:"mean_iou"`
	ClassAccuracy   []ClassScore  `json:"class_accuracy,omitempty"`
	MeanAccuracy    ClassScore    `json:"mean_accuracy"`
}

func newReport(cfg Config, workers int, merged *shard, elapsed time.Duration, mem MemoryMetrics) *Report {
	res := merged.metric.Value()

	r := &Report{
		Timestamp:     time.Now(),
		TotalDuration: elapsed,
		NumClasses:    cfg.NumClasses,
		Workers:       workers,
		BatchCount:    merged.batches,
		PixelCount:    merged.pixels,
		MemoryStats:   mem,
		ClassIoU:      toScores(res.IoU),
		MeanIoU:       ClassScore(res.MeanIoU),
		ClassAccuracy: toScores(res.Accuracy),
		MeanAccuracy:  ClassScore(res.MeanAccuracy),
	}
	if secs := elapsed.Seconds(); secs > 0 {
		r.PixelsPerSecond = float64(merged.pixels) / secs
	}
	return r
}

func toScores(xs []float64) []ClassScore {
	if xs == nil {
		return nil
	}
	out := make([]ClassScore, len(xs))
	for i, x := range xs {
		out[i] = ClassScore(x)
	}
	return out
}
