package statistics

import (
	"fmt"
	"math"
	"sort"
)

// Sample accumulates observations for summary statistics
type Sample struct {
	N      int
	Sum    float64
	Sum2   float64   // Sum of squares for variance calculation
	Values []float64 // Kept for median/percentile calculation
}

// Add records one observation
func (s *Sample) Add(v float64) {
	s.N++
	s.Sum += v
	s.Sum2 += v * v
	s.Values = append(s.Values, v)
}

// Mean returns the arithmetic mean
func (s *Sample) Mean() float64 {
	if s.N == 0 {
		return 0
	}
	return s.Sum / float64(s.N)
}

// Variance returns the sample variance
func (s *Sample) Variance() float64 {
	if s.N < 2 {
		return 0
	}
	mean := s.Mean()
	return math.Max(0, (s.Sum2-float64(s.N)*mean*mean)/float64(s.N-1))
}

// StdDev returns the sample standard deviation
func (s *Sample) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Sample) StdError() float64 {
	if s.N == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.N))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Sample) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

func (s *Sample) sorted() []float64 {
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)
	return sorted
}

// Median returns the median observation
func (s *Sample) Median() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := s.sorted()
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Percentile returns the value at the given percentile (0.0 to 1.0),
// interpolating between neighbours
func (s *Sample) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := s.sorted()

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Max returns the largest observation
func (s *Sample) Max() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	m := s.Values[0]
	for _, v := range s.Values[1:] {
		m = math.Max(m, v)
	}
	return m
}

// MaxRank is the worst rank a hold can have
const MaxRank = 32

// Session tracks graded hold decisions over a drill
type Session struct {
	Hands   int
	Correct int
	Loss    Sample           // EV given up per hand
	Ranks   [MaxRank + 1]int // Index 0 unused, 1-32 for ranks
}

// AddGrade records one graded decision
func (s *Session) AddGrade(loss float64, correct bool, rank int) {
	s.Hands++
	if correct {
		s.Correct++
	}
	s.Loss.Add(loss)
	if rank >= 1 && rank <= MaxRank {
		s.Ranks[rank]++
	}
}

// Accuracy returns the fraction of correct holds
func (s *Session) Accuracy() float64 {
	if s.Hands == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Hands)
}

// Validate checks that the session counters agree with each other
func (s *Session) Validate() error {
	if s.Hands <= 0 {
		return fmt.Errorf("invalid hands count: %d", s.Hands)
	}
	if s.Loss.N != s.Hands {
		return fmt.Errorf("loss samples (%d) do not match hands count (%d)", s.Loss.N, s.Hands)
	}
	if s.Correct > s.Hands {
		return fmt.Errorf("correct holds (%d) exceed total hands (%d)", s.Correct, s.Hands)
	}
	ranked := 0
	for _, n := range s.Ranks {
		ranked += n
	}
	if ranked != s.Hands {
		return fmt.Errorf("ranked hands total (%d) does not match total hands (%d)", ranked, s.Hands)
	}
	if s.Ranks[1] < s.Correct {
		return fmt.Errorf("top-ranked holds (%d) fewer than correct holds (%d)", s.Ranks[1], s.Correct)
	}
	return nil
}
