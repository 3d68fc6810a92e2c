// Package evaluator - Streaming evaluation of segmentation predictions
// against ground truth, sharding accumulation across workers and merging
// confusion matrices at the end.
package evaluator

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-segeval/segmentation"
)

// ErrAccuracyWithIgnore is returned when a Config asks for both accuracy
// tracking and ignore indices; the accuracy variant carries no ignore
// support.
var ErrAccuracyWithIgnore = errors.New("evaluator: ignore indices are not supported with accuracy tracking")

// Config describes an evaluation run.
type Config struct {
	// NumClasses is the class count of the segmentation problem.
	NumClasses int `json:"num_classes"    yaml:"numClasses"`
	// Workers is the number of parallel accumulators; defaults to
	// runtime.NumCPU() when < 1.
	Workers int `json:"workers"        yaml:"workers"`
	// Normalized controls whether exposed confusion matrices report
	// row fractions instead of raw counts.
	Normalized bool `json:"normalized"     yaml:"normalized"`
	// Ignore lists class indices excluded from IoU derivation.
	Ignore []int `json:"ignore"         yaml:"ignore"`
	// TrackAccuracy switches to the IoU-with-pixel-accuracy variant.
	TrackAccuracy bool `json:"track_accuracy" yaml:"trackAccuracy"`
}

// Batch is one predicted/target label-map pair. Accepted shapes are those
// of segmentation.SegmentationMetric.Add.
type Batch struct {
	Predicted tensor.Tensor
	Target    tensor.Tensor
}

// mergeable is what a shard needs from its metric: the accumulate/query
// contract plus access to the confusion matrix for the final merge.
type mergeable interface {
	segmentation.SegmentationMetric
	ConfusionMatrix() *segmentation.ConfusionMatrix
}

// Evaluator drains a channel of batches with one private metric per worker.
// Metrics are not safe for concurrent use, so no accumulator is ever shared;
// the per-worker matrices are combined afterwards by elementwise addition,
// which is associative and commutative and therefore insensitive to how the
// batches were distributed.
type Evaluator struct {
	cfg Config
}

// New validates cfg and returns an Evaluator.
func New(cfg Config) (*Evaluator, error) {
	if cfg.TrackAccuracy && len(cfg.Ignore) > 0 {
		return nil, ErrAccuracyWithIgnore
	}
	e := &Evaluator{cfg: cfg}
	// Constructing a metric validates NumClasses and the ignore set up
	// front instead of inside worker goroutines.
	if _, err := e.newMetric(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Evaluator) newMetric() (mergeable, error) {
	if e.cfg.TrackAccuracy {
		return segmentation.NewIoUWithAccuracyMetric(e.cfg.NumClasses)
	}
	return segmentation.NewIoUMetric(e.cfg.NumClasses, e.cfg.Normalized, e.cfg.Ignore...)
}

type shard struct {
	metric  mergeable
	batches int
	pixels  int64
}

// Run consumes batches until the channel closes or ctx is cancelled, then
// merges the worker shards and derives the report.
//
// Returns:
//   - *Report: The derived statistics and run accounting.
//   - error: ctx.Err() on cancellation, or the first fatal Add error (shape
//     or dtype misuse). Recoverable malformed batches are skipped inside the
//     metric layer and do not surface here.
func (e *Evaluator) Run(ctx context.Context, batches <-chan Batch) (*Report, error) {
	workers := e.cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	shards := make([]*shard, workers)
	for i := range shards {
		m, err := e.newMetric()
		if err != nil {
			return nil, err
		}
		shards[i] = &shard{metric: m}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	var startMem runtime.MemStats
	runtime.ReadMemStats(&startMem)

	start := time.Now()
	for _, s := range shards {
		wg.Add(1)
		go func(s *shard) {
			defer wg.Done()
			for {
				select {
				case <-runCtx.Done():
					return
				case batch, ok := <-batches:
					if !ok {
						return
					}
					if err := s.metric.Add(batch.Predicted, batch.Target); err != nil {
						fail(err)
						return
					}
					s.batches++
					s.pixels += labelPixels(batch.Target)
				}
			}
		}(s)
	}
	wg.Wait()
	elapsed := time.Since(start)

	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := shards[0]
	for _, s := range shards[1:] {
		if err := base.metric.ConfusionMatrix().Merge(s.metric.ConfusionMatrix()); err != nil {
			return nil, err
		}
		base.batches += s.batches
		base.pixels += s.pixels
	}

	mem := MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
	}
	return newReport(e.cfg, workers, base, elapsed, mem), nil
}

// labelPixels counts the label positions in a target tensor: the full size
// for rank-3 labels, size without the class axis for rank-4 scores.
func labelPixels(t tensor.Tensor) int64 {
	n := int64(t.Shape().TotalSize())
	if t.Dims() == 4 && t.Shape()[1] > 0 {
		n /= int64(t.Shape()[1])
	}
	return n
}
