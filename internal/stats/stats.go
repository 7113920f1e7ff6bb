// Package stats derives performance reports from the attempt ledger.
//
// [Compute] is a pure function of its inputs: it holds no state, reads no
// clock, and is race-free given an immutable snapshot of words and attempts.
// Reports are recomputed on demand and never persisted.
package stats

import (
	"sort"

	"github.com/fluencyboost/fluencyboost/internal/ledger"
	"github.com/fluencyboost/fluencyboost/internal/practice"
	"github.com/fluencyboost/fluencyboost/internal/words"
)

// defaultRecentScores is how many trailing attempt scores a report carries.
const defaultRecentScores = 10

// Mispronunciation is a recurring wrong rendition of a word: the exact
// spoken text and how many times it was recorded.
type Mispronunciation struct {
	SpokenText string `json:"spoken_text"`
	Count      int    `json:"count"`
}

// WordPerformance summarises one word's attempt history.
type WordPerformance struct {
	Word         words.Word `json:"word"`
	AverageScore float64    `json:"average_score"`
	AttemptCount int        `json:"attempt_count"`

	// Mispronunciations groups this word's low-scoring attempts (score below
	// the close threshold, non-empty spoken text) by exact spoken text.
	Mispronunciations []Mispronunciation `json:"mispronunciations,omitempty"`
}

// Report is the derived statistics snapshot.
type Report struct {
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`

	// SuccessRate is the percentage of attempts at or above the success
	// threshold. Zero when there are no attempts.
	SuccessRate float64 `json:"success_rate"`

	// RecentScores holds the last attempts' scores, newest first.
	RecentScores []float64 `json:"recent_scores"`

	// PerWord is sorted descending by average score; ties keep input order.
	PerWord []WordPerformance `json:"per_word"`
}

// Compute builds a Report from a snapshot of words and attempts. Averages
// and rates over zero attempts are defined as 0, never a division by zero.
func Compute(ws []words.Word, attempts []ledger.Attempt) Report {
	r := Report{
		TotalAttempts: len(attempts),
		RecentScores:  recentScores(attempts, defaultRecentScores),
	}

	var sum float64
	var successes int
	for _, a := range attempts {
		sum += a.Score
		if a.Score >= practice.ThresholdSuccess {
			successes++
		}
	}
	if len(attempts) > 0 {
		r.AverageScore = sum / float64(len(attempts))
		r.SuccessRate = 100 * float64(successes) / float64(len(attempts))
	}

	byWord := make(map[string][]ledger.Attempt, len(ws))
	for _, a := range attempts {
		byWord[a.WordID] = append(byWord[a.WordID], a)
	}

	r.PerWord = make([]WordPerformance, 0, len(ws))
	for _, w := range ws {
		r.PerWord = append(r.PerWord, wordPerformance(w, byWord[w.ID]))
	}
	// Stable keeps input order for equal averages.
	sort.SliceStable(r.PerWord, func(i, j int) bool {
		return r.PerWord[i].AverageScore > r.PerWord[j].AverageScore
	})

	return r
}

// wordPerformance summarises one word's attempts.
func wordPerformance(w words.Word, attempts []ledger.Attempt) WordPerformance {
	wp := WordPerformance{Word: w, AttemptCount: len(attempts)}

	var sum float64
	counts := make(map[string]int)
	var order []string
	for _, a := range attempts {
		sum += a.Score
		if a.Score < practice.ThresholdClose && a.SpokenText != "" {
			if counts[a.SpokenText] == 0 {
				order = append(order, a.SpokenText)
			}
			counts[a.SpokenText]++
		}
	}
	if len(attempts) > 0 {
		wp.AverageScore = sum / float64(len(attempts))
	}
	for _, spoken := range order {
		wp.Mispronunciations = append(wp.Mispronunciations, Mispronunciation{
			SpokenText: spoken,
			Count:      counts[spoken],
		})
	}
	return wp
}

// recentScores returns the scores of the last n attempts, newest first.
func recentScores(attempts []ledger.Attempt, n int) []float64 {
	if len(attempts) < n {
		n = len(attempts)
	}
	out := make([]float64, 0, n)
	for i := len(attempts) - 1; i >= len(attempts)-n; i-- {
		out = append(out, attempts[i].Score)
	}
	return out
}
