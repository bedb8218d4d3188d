package scorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func attempt(user string, startedAfter time.Duration, status LessonStatus, raw, maxScore *float64, total string) Attempt {
	return Attempt{
		ID:           user + "-" + startedAfter.String(),
		UserID:       user,
		LessonStatus: status,
		ScoreRaw:     raw,
		ScoreMax:     maxScore,
		TotalTime:    total,
		StartedAt:    t0.Add(startedAfter),
		UpdatedAt:    t0.Add(startedAfter),
	}
}

func TestComputeStats_LatestAttemptPerUser(t *testing.T) {
	st := ComputeStats([]Attempt{
		attempt("u1", 0, StatusFailed, nil, nil, ""),
		attempt("u1", time.Hour, StatusPassed, ptr(80.0), ptr(100.0), ""),
	})

	assert.Equal(t, 2, st.TotalAttempts)
	assert.Equal(t, 1, st.UniqueUsers)
	assert.Equal(t, 1, st.CompletedCount)
	assert.Equal(t, 1, st.PassedCount)
	assert.Equal(t, 0, st.FailedCount)
	assert.Equal(t, 0, st.InProgressCount)
	assert.Equal(t, 80.0, st.AverageScore)
	assert.Equal(t, 100.0, st.CompletionRate)
	assert.Equal(t, 100.0, st.PassRate)
}

func TestComputeStats_Mixed(t *testing.T) {
	st := ComputeStats([]Attempt{
		attempt("u1", 0, StatusCompleted, ptr(45.0), ptr(50.0), "00:30:00"),
		attempt("u2", 0, StatusFailed, ptr(20.0), ptr(100.0), "PT1H"),
		attempt("u3", 0, StatusIncomplete, nil, nil, ""),
		attempt("u4", 0, LessonStatus("unknown"), ptr(1.0), ptr(0.0), "01:00:00"),
	})

	assert.Equal(t, 4, st.UniqueUsers)
	assert.Equal(t, 1, st.CompletedCount)
	assert.Equal(t, 0, st.PassedCount)
	assert.Equal(t, 1, st.FailedCount)
	assert.Equal(t, 2, st.InProgressCount)
	assert.Equal(t, 25.0, st.CompletionRate)
	assert.Equal(t, 0.0, st.PassRate)

	// scores with max <= 0 are ignored
	assert.Equal(t, 55.0, st.AverageScore)
	assert.Equal(t, 90.0, st.HighestScore)
	assert.Equal(t, 20.0, st.LowestScore)

	assert.Equal(t, "02:30:00", st.TotalTime)
	assert.Equal(t, "00:50:00", st.AverageTime)
}

func TestComputeStats_Empty(t *testing.T) {
	st := ComputeStats(nil)
	assert.Equal(t, Stats{TotalTime: "00:00:00", AverageTime: "00:00:00"}, st)
}

func TestComputeStats_SessionTimeFallback(t *testing.T) {
	a := attempt("u1", 0, StatusIncomplete, nil, nil, "")
	a.SessionTime = "00:05:30"
	st := ComputeStats([]Attempt{a})
	assert.Equal(t, "00:05:30", st.TotalTime)
}

func TestComputeStats_Rounding(t *testing.T) {
	st := ComputeStats([]Attempt{
		attempt("u1", 0, StatusPassed, ptr(2.0), ptr(3.0), ""),
		attempt("u2", 0, StatusCompleted, nil, nil, ""),
		attempt("u3", 0, StatusIncomplete, nil, nil, ""),
	})
	assert.Equal(t, 66.7, st.AverageScore)
	assert.Equal(t, 66.7, st.CompletionRate)
	assert.Equal(t, 50.0, st.PassRate)
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"00:00:00", 0, true},
		{"01:02:03", time.Hour + 2*time.Minute + 3*time.Second, true},
		{"0100:00:00.5", 100*time.Hour + 500*time.Millisecond, true},
		{"PT1H30M", 90 * time.Minute, true},
		{"PT45.5S", 45*time.Second + 500*time.Millisecond, true},
		{"P1DT2H", 26 * time.Hour, true},
		{"", 0, false},
		{"P", 0, false},
		{"PT", 0, false},
		{"12:61:00", 0, false},
		{"1:2", 0, false},
		{"soon", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseDuration(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatDuration(-time.Second))
	assert.Equal(t, "01:01:01", FormatDuration(time.Hour+time.Minute+time.Second))
	assert.Equal(t, "125:00:00", FormatDuration(125*time.Hour))
}
