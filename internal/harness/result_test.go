package harness

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleResults() []Result {
	return []Result{
		{ID: "1", Job: "a", Steps: 3, Duration: 10 * time.Millisecond},
		{ID: "2", Job: "b", Steps: 1, Err: errors.New("boom"), Duration: 30 * time.Millisecond},
		{ID: "3", Job: "c", Steps: 3, Duration: 20 * time.Millisecond},
	}
}

func TestCounts(t *testing.T) {
	results := sampleResults()

	if got := CountSuccessful(results); got != 2 {
		t.Errorf("CountSuccessful = %d, want 2", got)
	}
	if got := CountFailed(results); got != 1 {
		t.Errorf("CountFailed = %d, want 1", got)
	}
	if !HasErrors(results) {
		t.Error("HasErrors should be true")
	}
	if HasErrors(nil) {
		t.Error("HasErrors(nil) should be false")
	}
}

func TestFilterFailed(t *testing.T) {
	failed := FilterFailed(sampleResults())
	if len(failed) != 1 || failed[0].Job != "b" {
		t.Errorf("unexpected failed results: %+v", failed)
	}

	errs := Errors(sampleResults())
	if len(errs) != 1 || errs[0].Error() != "boom" {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    float64
	}{
		{"empty", nil, 0.0},
		{"mixed", sampleResults(), 100.0 * 2 / 3},
		{"all ok", []Result{{}, {}}, 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuccessRate(tt.results); got != tt.want {
				t.Errorf("SuccessRate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults())

	if s.Total != 3 || s.Successful != 2 || s.Failed != 1 {
		t.Errorf("unexpected summary counts: %+v", s)
	}
	if s.TotalSteps != 7 {
		t.Errorf("TotalSteps = %d, want 7", s.TotalSteps)
	}
	if s.AvgDuration != 20*time.Millisecond {
		t.Errorf("AvgDuration = %v, want 20ms", s.AvgDuration)
	}
	if s.MaxDuration != 30*time.Millisecond {
		t.Errorf("MaxDuration = %v, want 30ms", s.MaxDuration)
	}

	str := s.String()
	for _, want := range []string{"Total: 3", "Successful: 2", "Failed: 1", "Steps: 7"} {
		if !strings.Contains(str, want) {
			t.Errorf("summary %q missing %q", str, want)
		}
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.AvgDuration != 0 {
		t.Errorf("unexpected empty summary: %+v", s)
	}
	if !strings.Contains(s.String(), "Total: 0") {
		t.Errorf("unexpected string: %q", s.String())
	}
}
