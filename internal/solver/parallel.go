package solver

import (
	"math"
	"sync"
)

// parallelFor runs body(i) for i in [0, count) across the given number of
// worker goroutines, splitting the index range into contiguous chunks. With
// workers <= 1 (or a small count) it degrades to a plain loop. The call is
// a barrier: it returns only after every index has been processed.
func parallelFor(count, workers int, body func(i int)) {
	if workers <= 1 || count < 2*workers {
		for i := 0; i < count; i++ {
			body(i)
		}
		return
	}

	chunk := (count + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= count {
			break
		}
		end := minOf(start+chunk, count)

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				body(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// threadCountArm is one (update workers, evaluation workers) candidate of
// the thread-count optimizer.
type threadCountArm struct {
	UpdateWorkers     int
	EvaluationWorkers int

	pulls     int
	meanSpeed float64
}

// ThreadCountOptimizer is a small UCB1 bandit over a grid of worker-count
// pairs, rewarded by observed iterations per second. The controller pulls
// one arm per round.
type ThreadCountOptimizer struct {
	arms       []threadCountArm
	totalPulls int
	current    int
}

// NewThreadCountOptimizer builds the arm grid from the configured maxima:
// powers of two up to each limit.
func NewThreadCountOptimizer(maxUpdateWorkers, maxEvaluationWorkers int) *ThreadCountOptimizer {
	updates := powersOfTwoUpTo(maxUpdateWorkers)
	evaluations := powersOfTwoUpTo(maxEvaluationWorkers)

	o := &ThreadCountOptimizer{}
	for _, u := range updates {
		for _, e := range evaluations {
			o.arms = append(o.arms, threadCountArm{UpdateWorkers: u, EvaluationWorkers: e})
		}
	}
	return o
}

// Next picks the arm to use for the coming round: each arm once, then UCB1.
func (o *ThreadCountOptimizer) Next() (updateWorkers, evaluationWorkers int) {
	best := -1
	bestScore := math.Inf(-1)
	for i := range o.arms {
		if o.arms[i].pulls == 0 {
			best = i
			break
		}
		score := o.arms[i].meanSpeed +
			math.Sqrt(2.0*math.Log(float64(o.totalPulls))/float64(o.arms[i].pulls))
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	o.current = best
	return o.arms[best].UpdateWorkers, o.arms[best].EvaluationWorkers
}

// Observe rewards the last pulled arm with the measured speed in
// iterations per second.
func (o *ThreadCountOptimizer) Observe(iterationsPerSecond float64) {
	arm := &o.arms[o.current]
	arm.pulls++
	o.totalPulls++
	arm.meanSpeed += (iterationsPerSecond - arm.meanSpeed) / float64(arm.pulls)
}

// Best returns the arm with the highest mean speed so far.
func (o *ThreadCountOptimizer) Best() (updateWorkers, evaluationWorkers int) {
	best := 0
	for i := range o.arms {
		if o.arms[i].meanSpeed > o.arms[best].meanSpeed {
			best = i
		}
	}
	return o.arms[best].UpdateWorkers, o.arms[best].EvaluationWorkers
}

// powersOfTwoUpTo returns 1, 2, 4, ... capped at limit, always including
// the limit itself.
func powersOfTwoUpTo(limit int) []int {
	if limit < 1 {
		limit = 1
	}
	values := []int{}
	for v := 1; v < limit; v *= 2 {
		values = append(values, v)
	}
	values = append(values, limit)
	return values
}
