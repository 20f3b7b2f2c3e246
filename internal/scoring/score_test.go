package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstore/agentstore/internal/catalog"
)

var testNow = time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

func testEngine() Engine {
	return Engine{Now: func() time.Time { return testNow }}
}

func makeData(mutate func(*catalog.CapabilityData)) catalog.CapabilityData {
	data := catalog.CapabilityData{
		Entry: catalog.CapabilityEntry{
			Name: "test-skill", Source: "openclaw", SourceID: "test-1",
			Provider: "testuser", Description: "A test capability", Category: "development",
		},
		Repo: catalog.RepoData{
			Stars: 100, Forks: 20, Language: "Python",
			LastUpdated: "2026-02-15T00:00:00Z",
			OpenIssues:  5, ClosedIssues: 45, Contributors: 8,
			HasTests: true, ReadmeLength: 500,
		},
		Analysis: catalog.AnalysisResult{
			ReliabilityScore: 7.0, SafetyScore: 8.0,
			CapabilityScore: 6.5, UsabilityScore: 7.5,
		},
	}
	if mutate != nil {
		mutate(&data)
	}
	return data
}

func TestReliabilityFreshPush(t *testing.T) {
	// AI 9.0 pushed today: round(9.0*0.7 + 10*0.3, 1) = 9.3
	data := makeData(func(d *catalog.CapabilityData) {
		d.Analysis.ReliabilityScore = 9.0
		d.Repo.LastUpdated = testNow.Format(time.RFC3339)
	})
	scores := testEngine().Calculate([]catalog.CapabilityData{data})
	assert.Equal(t, 9.3, scores[0].Reliability)
}

func TestReliabilityStaleRepo(t *testing.T) {
	data := makeData(func(d *catalog.CapabilityData) {
		d.Analysis.ReliabilityScore = 2.0
		d.Repo.LastUpdated = "2024-01-01T00:00:00Z"
	})
	score := testEngine().scoreReliability(data)
	assert.InDelta(t, 2.0*0.7+1.0*0.3, score, 1e-9)
}

func TestReliabilityUnparseableTimestamp(t *testing.T) {
	data := makeData(func(d *catalog.CapabilityData) {
		d.Repo.LastUpdated = "not-a-date"
	})
	// 999 days since falls into the lowest maintenance bucket.
	score := testEngine().scoreReliability(data)
	assert.InDelta(t, 7.0*0.7+1.0*0.3, score, 1e-9)
}

func TestClampAboveTen(t *testing.T) {
	data := makeData(func(d *catalog.CapabilityData) {
		d.Analysis.ReliabilityScore = 15.0
		d.Repo.LastUpdated = testNow.Format(time.RFC3339)
	})
	scores := testEngine().Calculate([]catalog.CapabilityData{data})
	assert.Equal(t, 10.0, scores[0].Reliability)
}

func TestSafetyWithScanResults(t *testing.T) {
	data := makeData(func(d *catalog.CapabilityData) {
		d.Analysis.SafetyScore = 8.0
		d.Scan = catalog.ScanResult{
			Tool:         "semgrep,secret_scanner",
			SeverityHigh: 1, SeverityMedium: 2, SeverityLow: 3,
			HasAPIKeys: true,
		}
	})
	// scan score: 10 - 2 - 2 - 0.9 - 3 = 2.1; blended: 2.1*0.6 + 8.0*0.4
	score := testEngine().scoreSafety(data)
	assert.InDelta(t, 2.1*0.6+8.0*0.4, score, 1e-9)
}

func TestSafetyScanScoreClampsAtZero(t *testing.T) {
	data := makeData(func(d *catalog.CapabilityData) {
		d.Analysis.SafetyScore = 5.0
		d.Scan = catalog.ScanResult{Tool: "trivy", SeverityHigh: 20}
	})
	score := testEngine().scoreSafety(data)
	assert.InDelta(t, 0.0*0.6+5.0*0.4, score, 1e-9)
}

func TestSafetyWithoutScanFallsBackToAI(t *testing.T) {
	data := makeData(func(d *catalog.CapabilityData) {
		d.Analysis.SafetyScore = 8.0
		d.Repo.HasTests = true
		d.Repo.HasTypeScript = true
	})
	score := testEngine().scoreSafety(data)
	assert.InDelta(t, 8.0*0.85+1.0+0.5, score, 1e-9)
}

func TestCapabilityBonuses(t *testing.T) {
	data := makeData(func(d *catalog.CapabilityData) {
		d.Analysis.CapabilityScore = 8.0
		d.Repo.HasTests = true
		d.Repo.Contributors = 3
		d.Repo.ReadmeLength = 1000
	})
	score := testEngine().scoreCapability(data)
	assert.InDelta(t, 8.0*0.8+2.0, score, 1e-9)
}

func TestReputationPopularRepo(t *testing.T) {
	data := makeData(func(d *catalog.CapabilityData) {
		d.Repo.Stars = 5000
		d.Repo.ClosedIssues = 90
		d.Repo.OpenIssues = 10
		d.Repo.Contributors = 20
	})
	score := testEngine().scoreReputation(data)
	assert.GreaterOrEqual(t, score, 7.0)
	assert.LessOrEqual(t, score, 10.0)
}

func TestReputationZeroIssuesCountsAsHalf(t *testing.T) {
	data := makeData(func(d *catalog.CapabilityData) {
		d.Repo.Stars = 1
		d.Repo.OpenIssues = 0
		d.Repo.ClosedIssues = 0
		d.Repo.Contributors = 1
	})
	score := testEngine().scoreReputation(data)

	starScore := 0.03738 // log(1/50+1)/log(200)*10
	contribScore := 2.31378
	assert.InDelta(t, starScore*0.4+5.0*0.3+contribScore*0.3, score, 1e-3)
}

func TestUsabilityFloor(t *testing.T) {
	// 99-char README hard-zeroes usability regardless of the AI score.
	data := makeData(func(d *catalog.CapabilityData) {
		d.Analysis.UsabilityScore = 10.0
		d.Repo.ReadmeLength = 99
	})
	assert.Equal(t, 0.0, testEngine().scoreUsability(data))

	// 100 chars does not trigger the floor.
	data.Repo.ReadmeLength = 100
	assert.Greater(t, testEngine().scoreUsability(data), 0.0)
}

func TestUsabilityDocBonusCaps(t *testing.T) {
	data := makeData(func(d *catalog.CapabilityData) {
		d.Analysis.UsabilityScore = 8.0
		d.Repo.ReadmeLength = 9000
	})
	score := testEngine().scoreUsability(data)
	assert.InDelta(t, 8.0*0.75+2.5, score, 1e-9)
}

func TestOverallFromRoundedDimensions(t *testing.T) {
	data := makeData(nil)
	results := testEngine().Calculate([]catalog.CapabilityData{data})
	require.Len(t, results, 1)

	s := results[0]
	expected := round1(s.Reliability*0.25 + s.Safety*0.25 + s.Capability*0.20 + s.Reputation*0.15 + s.Usability*0.15)
	assert.Equal(t, expected, s.Overall)
}

func TestOverallKnownValue(t *testing.T) {
	// round(8.0*0.25 + 7.5*0.25 + 6.0*0.20 + 5.0*0.15 + 9.0*0.15, 1) = 7.1
	overall := round1(8.0*0.25 + 7.5*0.25 + 6.0*0.20 + 5.0*0.15 + 9.0*0.15)
	assert.Equal(t, 7.1, overall)
}

func TestCalculateEmpty(t *testing.T) {
	assert.Empty(t, testEngine().Calculate(nil))
}
