package scorm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Stats summarizes every attempt of one package.
type Stats struct {
	TotalAttempts   int     `json:"totalAttempts"`
	UniqueUsers     int     `json:"uniqueUsers"`
	CompletedCount  int     `json:"completedCount"`
	PassedCount     int     `json:"passedCount"`
	FailedCount     int     `json:"failedCount"`
	InProgressCount int     `json:"inProgressCount"`
	CompletionRate  float64 `json:"completionRate"`
	PassRate        float64 `json:"passRate"`
	AverageScore    float64 `json:"averageScore"`
	HighestScore    float64 `json:"highestScore"`
	LowestScore     float64 `json:"lowestScore"`
	TotalTime       string  `json:"totalTime"`
	AverageTime     string  `json:"averageTime"`
}

// ComputeStats reduces attempts to package statistics. Status counts use each
// user's most recently started attempt; score and time figures use every
// attempt.
func ComputeStats(attempts []Attempt) Stats {
	st := Stats{TotalAttempts: len(attempts)}

	latest := make(map[string]Attempt, len(attempts))
	for _, a := range attempts {
		cur, ok := latest[a.UserID]
		if !ok || a.StartedAt.After(cur.StartedAt) ||
			(a.StartedAt.Equal(cur.StartedAt) && a.UpdatedAt.After(cur.UpdatedAt)) {
			latest[a.UserID] = a
		}
	}
	st.UniqueUsers = len(latest)

	for _, a := range latest {
		switch a.LessonStatus {
		case StatusPassed:
			st.CompletedCount++
			st.PassedCount++
		case StatusCompleted:
			st.CompletedCount++
		case StatusFailed:
			st.FailedCount++
		default:
			st.InProgressCount++
		}
	}

	var scored int
	var sum float64
	st.LowestScore = math.Inf(1)
	st.HighestScore = math.Inf(-1)
	for _, a := range attempts {
		pct, ok := a.ScorePercent()
		if !ok {
			continue
		}
		scored++
		sum += pct
		st.HighestScore = math.Max(st.HighestScore, pct)
		st.LowestScore = math.Min(st.LowestScore, pct)
	}
	if scored > 0 {
		st.AverageScore = round1(sum / float64(scored))
		st.HighestScore = round1(st.HighestScore)
		st.LowestScore = round1(st.LowestScore)
	} else {
		st.HighestScore, st.LowestScore = 0, 0
	}

	var total time.Duration
	var timed int
	for _, a := range attempts {
		if d := a.TimeSpent(); d > 0 {
			total += d
			timed++
		}
	}
	st.TotalTime = FormatDuration(total)
	if timed > 0 {
		st.AverageTime = FormatDuration(total / time.Duration(timed))
	} else {
		st.AverageTime = FormatDuration(0)
	}

	if st.UniqueUsers > 0 {
		st.CompletionRate = round1(float64(st.CompletedCount) / float64(st.UniqueUsers) * 100)
	}
	if st.CompletedCount > 0 {
		st.PassRate = round1(float64(st.PassedCount) / float64(st.CompletedCount) * 100)
	}
	return st
}

// ScorePercent normalizes the raw score to 0-100. It needs a raw score and a
// positive max score.
func (a Attempt) ScorePercent() (float64, bool) {
	if a.ScoreRaw == nil || a.ScoreMax == nil || *a.ScoreMax <= 0 {
		return 0, false
	}
	return *a.ScoreRaw / *a.ScoreMax * 100, true
}

// TimeSpent is the attempt's total time, or its session time when no total
// has been committed.
func (a Attempt) TimeSpent() time.Duration {
	if d, ok := ParseDuration(a.TotalTime); ok && d > 0 {
		return d
	}
	d, _ := ParseDuration(a.SessionTime)
	return d
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+(?:\.\d+)?)Y)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseDuration reads CMI timespans: "HHHH:MM:SS.SS" (SCORM 1.2) or
// ISO 8601 "P[nY][nM][nD][T[nH][nM][nS]]" (SCORM 2004).
func ParseDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "P") {
		return parseISODuration(s)
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || sec < 0 || sec >= 60 {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second)), true
}

func parseISODuration(s string) (time.Duration, bool) {
	if s == "P" || strings.HasSuffix(s, "T") {
		return 0, false
	}
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	// calendar units use the fixed lengths SCORM 2004 runtimes assume
	units := []time.Duration{
		365 * 24 * time.Hour,
		30 * 24 * time.Hour,
		24 * time.Hour,
		time.Hour,
		time.Minute,
		time.Second,
	}
	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, false
		}
		d += time.Duration(v * float64(unit))
	}
	return d, true
}

// FormatDuration renders d as HH:MM:SS; hours may exceed two digits.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
