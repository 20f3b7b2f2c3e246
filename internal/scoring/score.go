// Package scoring computes the five-dimension capability scores.
//
// Dimensions and weights:
//   - reliability 25%
//   - safety      25%
//   - capability  20%
//   - reputation  15%
//   - usability   15%
//
// Every function here is pure: no I/O, deterministic given its inputs
// (the maintenance-recency step uses an injected clock for that reason).
package scoring

import (
	"math"
	"time"

	"github.com/agentstore/agentstore/internal/catalog"
)

// Engine scores assembled capability data. Now is injectable so tests can
// pin the recency calculation; the zero value uses the wall clock.
type Engine struct {
	Now func() time.Time
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// Calculate scores each input and returns results aligned by position.
// Each dimension is rounded to one decimal before the weighted overall is
// computed from the rounded values. That ordering loses a little precision
// but is what the published dataset has always contained, so it stays.
func (e Engine) Calculate(dataList []catalog.CapabilityData) []catalog.Scores {
	results := make([]catalog.Scores, 0, len(dataList))
	for _, data := range dataList {
		r := round1(e.scoreReliability(data))
		s := round1(e.scoreSafety(data))
		c := round1(e.scoreCapability(data))
		rep := round1(e.scoreReputation(data))
		u := round1(e.scoreUsability(data))
		overall := round1(r*0.25 + s*0.25 + c*0.20 + rep*0.15 + u*0.15)
		results = append(results, catalog.Scores{
			Reliability: r,
			Safety:      s,
			Capability:  c,
			Reputation:  rep,
			Usability:   u,
			Overall:     overall,
		})
	}
	return results
}

// scoreReliability blends the AI judgment (70%) with maintenance recency (30%).
func (e Engine) scoreReliability(data catalog.CapabilityData) float64 {
	aiPart := data.Analysis.ReliabilityScore * 0.7

	days := e.daysSince(data.Repo.LastUpdated)
	var maint float64
	switch {
	case days <= 7:
		maint = 10.0
	case days <= 30:
		maint = 8.5
	case days <= 90:
		maint = 7.0
	case days <= 180:
		maint = 5.0
	case days <= 365:
		maint = 3.0
	default:
		maint = 1.0
	}
	return clamp(aiPart + maint*0.3)
}

// scoreSafety uses scan findings (60%) plus the AI judgment (40%) when at
// least one scanner ran. Without scan data it degrades to the AI score
// (85%) plus small bonuses for tests and a typed language.
func (e Engine) scoreSafety(data catalog.CapabilityData) float64 {
	scan := data.Scan

	if scan.Tool != "" {
		scanScore := 10.0
		scanScore -= float64(scan.SeverityHigh) * 2.0
		scanScore -= float64(scan.SeverityMedium) * 1.0
		scanScore -= float64(scan.SeverityLow) * 0.3
		if scan.HasAPIKeys {
			scanScore -= 3.0
		}
		scanScore = clamp(scanScore)

		return clamp(scanScore*0.6 + data.Analysis.SafetyScore*0.4)
	}

	aiPart := data.Analysis.SafetyScore * 0.85
	codeBonus := 0.0
	if data.Repo.HasTests {
		codeBonus += 1.0
	}
	if data.Repo.HasTypeScript {
		codeBonus += 0.5
	}
	return clamp(aiPart + codeBonus)
}

// scoreCapability blends the AI judgment (80%) with code-maturity signals.
func (e Engine) scoreCapability(data catalog.CapabilityData) float64 {
	aiPart := data.Analysis.CapabilityScore * 0.8
	maturity := 0.0
	if data.Repo.HasTests {
		maturity += 1.0
	}
	if data.Repo.Contributors >= 3 {
		maturity += 0.5
	}
	if data.Repo.ReadmeLength >= 1000 {
		maturity += 0.5
	}
	return clamp(aiPart + maturity)
}

// scoreReputation combines log-scaled stars (40%), issue closure ratio
// (30%, 50% when the repo has no issues at all) and log-scaled contributor
// count (30%).
func (e Engine) scoreReputation(data catalog.CapabilityData) float64 {
	stars := data.Repo.Stars
	if stars < 1 {
		stars = 1
	}
	starScore := math.Min(10.0, math.Log(float64(stars)/50+1)/math.Log(200)*10)

	totalIssues := data.Repo.OpenIssues + data.Repo.ClosedIssues
	issueScore := 5.0
	if totalIssues > 0 {
		issueScore = float64(data.Repo.ClosedIssues) / float64(totalIssues) * 10.0
	}

	contributors := data.Repo.Contributors
	if contributors < 1 {
		contributors = 1
	}
	contribScore := math.Min(10.0, math.Log(float64(contributors)+1)/math.Log(20)*10)

	return clamp(starScore*0.4 + issueScore*0.3 + contribScore*0.3)
}

// scoreUsability blends the AI judgment (75%) with documentation length
// (25%). A README under 100 characters fails the documentation floor and
// zeroes the dimension regardless of the AI score.
func (e Engine) scoreUsability(data catalog.CapabilityData) float64 {
	if data.Repo.ReadmeLength < 100 {
		return 0.0
	}
	aiPart := data.Analysis.UsabilityScore * 0.75
	docScore := math.Min(2.5, float64(data.Repo.ReadmeLength)/3000*2.5)
	return clamp(aiPart + docScore)
}

// daysSince returns full days between the RFC 3339 timestamp and now.
// Unparseable or empty timestamps count as 999 days, landing in the lowest
// maintenance bucket.
func (e Engine) daysSince(isoDate string) int {
	t, err := time.Parse(time.RFC3339, isoDate)
	if err != nil {
		return 999
	}
	return int(e.now().Sub(t).Hours() / 24)
}

func clamp(v float64) float64 {
	return math.Max(0.0, math.Min(10.0, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
