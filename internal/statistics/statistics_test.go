package statistics

import (
	"math"
	"strings"
	"testing"
)

func TestSample_Empty(t *testing.T) {
	s := &Sample{}

	if s.Mean() != 0 {
		t.Errorf("Expected mean of 0 for empty sample, got %f", s.Mean())
	}
	if s.Variance() != 0 {
		t.Errorf("Expected variance of 0 for empty sample, got %f", s.Variance())
	}
	if s.StdError() != 0 {
		t.Errorf("Expected stderr of 0 for empty sample, got %f", s.StdError())
	}
	if s.Median() != 0 {
		t.Errorf("Expected median of 0 for empty sample, got %f", s.Median())
	}
	if s.Percentile(0.5) != 0 {
		t.Errorf("Expected percentile of 0 for empty sample, got %f", s.Percentile(0.5))
	}
	if s.Max() != 0 {
		t.Errorf("Expected max of 0 for empty sample, got %f", s.Max())
	}
}

func TestSample_SingleValue(t *testing.T) {
	s := &Sample{}
	s.Add(2.5)

	if s.N != 1 {
		t.Errorf("Expected 1 observation, got %d", s.N)
	}
	if s.Mean() != 2.5 {
		t.Errorf("Expected mean of 2.5, got %f", s.Mean())
	}
	if s.Variance() != 0 {
		t.Errorf("Expected variance of 0 for single value, got %f", s.Variance())
	}
	if s.Median() != 2.5 {
		t.Errorf("Expected median of 2.5, got %f", s.Median())
	}
}

func TestSample_MultipleValues(t *testing.T) {
	s := &Sample{}
	for _, v := range []float64{1, 2, 3, 4, 5} {
		s.Add(v)
	}

	if s.Mean() != 3 {
		t.Errorf("Expected mean of 3, got %f", s.Mean())
	}
	// Sample variance of 1..5 is 2.5
	if math.Abs(s.Variance()-2.5) > 1e-9 {
		t.Errorf("Expected variance of 2.5, got %f", s.Variance())
	}
	if math.Abs(s.StdDev()-math.Sqrt(2.5)) > 1e-9 {
		t.Errorf("Expected stddev of %f, got %f", math.Sqrt(2.5), s.StdDev())
	}
	if s.Median() != 3 {
		t.Errorf("Expected median of 3, got %f", s.Median())
	}
	if s.Max() != 5 {
		t.Errorf("Expected max of 5, got %f", s.Max())
	}

	s.Add(6)
	if s.Median() != 3.5 {
		t.Errorf("Expected even-count median of 3.5, got %f", s.Median())
	}
}

func TestSample_Percentiles(t *testing.T) {
	s := &Sample{}
	for i := 0; i <= 100; i++ {
		s.Add(float64(100 - i))
	}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 0},
		{0.25, 25},
		{0.5, 50},
		{0.99, 99},
		{1, 100},
	}
	for _, tt := range tests {
		if got := s.Percentile(tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Percentile(%v) = %f, want %f", tt.p, got, tt.want)
		}
	}

	// Interpolates between neighbours
	small := &Sample{}
	small.Add(10)
	small.Add(20)
	if got := small.Percentile(0.5); got != 15 {
		t.Errorf("Expected interpolated percentile of 15, got %f", got)
	}
}

func TestSample_ConfidenceInterval(t *testing.T) {
	s := &Sample{}
	for i := 0; i < 100; i++ {
		s.Add(float64(i % 2))
	}

	low, high := s.ConfidenceInterval95()
	mean := s.Mean()
	if low >= mean || high <= mean {
		t.Errorf("Expected interval around %f, got [%f, %f]", mean, low, high)
	}
	if math.Abs((high-low)/2-1.96*s.StdError()) > 1e-9 {
		t.Errorf("Expected margin of 1.96 standard errors, got %f", (high-low)/2)
	}
}

func TestSession_AddGrade(t *testing.T) {
	s := &Session{}
	s.AddGrade(0, true, 1)
	s.AddGrade(0.25, false, 3)
	s.AddGrade(0, true, 1)
	s.AddGrade(1.5, false, 12)

	if s.Hands != 4 {
		t.Errorf("Expected 4 hands, got %d", s.Hands)
	}
	if s.Accuracy() != 0.5 {
		t.Errorf("Expected accuracy of 0.5, got %f", s.Accuracy())
	}
	if math.Abs(s.Loss.Mean()-0.4375) > 1e-12 {
		t.Errorf("Expected mean loss of 0.4375, got %f", s.Loss.Mean())
	}
	if s.Ranks[1] != 2 || s.Ranks[3] != 1 || s.Ranks[12] != 1 {
		t.Errorf("Unexpected rank counts %v", s.Ranks)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Expected valid session, got %v", err)
	}
}

func TestSession_Validate(t *testing.T) {
	tests := []struct {
		name   string
		build  func() *Session
		errMsg string
	}{
		{
			name:   "empty",
			build:  func() *Session { return &Session{} },
			errMsg: "invalid hands count",
		},
		{
			name: "loss mismatch",
			build: func() *Session {
				s := &Session{}
				s.AddGrade(0, true, 1)
				s.Loss.Add(1)
				return s
			},
			errMsg: "loss samples",
		},
		{
			name: "too many correct",
			build: func() *Session {
				s := &Session{}
				s.AddGrade(0, true, 1)
				s.Correct = 2
				return s
			},
			errMsg: "exceed total hands",
		},
		{
			name: "rank out of range",
			build: func() *Session {
				s := &Session{}
				s.AddGrade(0.5, false, 40)
				return s
			},
			errMsg: "ranked hands total",
		},
		{
			name: "correct but not top ranked",
			build: func() *Session {
				s := &Session{}
				s.AddGrade(0, true, 2)
				return s
			},
			errMsg: "top-ranked holds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}
