// internal/risk/engine_test.go
package risk

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func referenceProfile() WeightingProfile {
	return WeightingProfile{
		StalledThresholdDays: 14,
		RiskWeightAmount:     0.4,
		RiskWeightStage:      0.3,
		RiskWeightInactivity: 0.2,
		RiskWeightNotes:      0.1,
	}
}

// onlyWeight returns a profile where a single component carries weight w.
func onlyWeight(component string, w float64) WeightingProfile {
	p := WeightingProfile{StalledThresholdDays: 14}
	switch component {
	case "amount":
		p.RiskWeightAmount = w
	case "stage":
		p.RiskWeightStage = w
	case "inactivity":
		p.RiskWeightInactivity = w
	case "notes":
		p.RiskWeightNotes = w
	}
	return p
}

// ==========================
// Core Functionality Tests
// ==========================

func TestCompute_ReferenceScenarios(t *testing.T) {
	tests := []struct {
		name            string
		deal            Deal
		expectedScore   int
		expectedLevel   Level
		expectedFactors []string
	}{
		{
			name:            "fresh discovery deal",
			deal:            Deal{DaysInactive: 0, Stage: "Discovery", Amount: 1000, Notes: ""},
			expectedScore:   9, // (0 + 0.3*0.3 + 0.01*0.4 + 0) * 100 = 9.4
			expectedLevel:   LevelLow,
			expectedFactors: []string{},
		},
		{
			name: "stalled negotiation with risky notes",
			deal: Deal{
				DaysInactive: 30,
				Stage:        "Negotiation",
				Amount:       80000,
				Notes:        "budget concerns, legal review pending",
			},
			expectedScore: 92, // (1*0.2 + 1*0.3 + 0.8*0.4 + 1*0.1) * 100
			expectedLevel: LevelHigh,
			expectedFactors: []string{
				"Inactive for 30 days",
				"Deal is currently in a high-friction stage (Negotiation)",
				"High-value deal ($80,000)",
				`Notes mention a risk factor ("budget")`,
				`Notes mention a risk factor ("legal")`,
			},
		},
		{
			name:            "healthy proposal",
			deal:            Deal{DaysInactive: 10, Stage: "Proposal", Amount: 20000, Notes: "client is excited"},
			expectedScore:   24, // (10/28*0.2 + 0.3*0.3 + 0.2*0.4) * 100 = 24.14
			expectedLevel:   LevelLow,
			expectedFactors: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.deal, referenceProfile())

			assert.Equal(t, tt.expectedScore, got.Score)
			assert.Equal(t, tt.expectedLevel, got.Level)
			require.NotNil(t, got.Factors)
			assert.Equal(t, tt.expectedFactors, got.Factors)
		})
	}
}

func TestCompute_LevelBoundaries(t *testing.T) {
	negotiation := Deal{Stage: "Negotiation"}
	budget := Deal{Stage: "Discovery", Notes: "budget"}

	tests := []struct {
		name          string
		deal          Deal
		profile       WeightingProfile
		expectedScore int
		expectedLevel Level
	}{
		{"exactly 70 is medium", negotiation, onlyWeight("stage", 0.7), 70, LevelMedium},
		{"exactly 40 is low", negotiation, onlyWeight("stage", 0.4), 40, LevelLow},
		{"70.3125 rounds to 70 and stays medium", budget, onlyWeight("notes", 0.703125), 70, LevelMedium},
		{"71.09375 rounds to 71 and is high", budget, onlyWeight("notes", 0.7109375), 71, LevelHigh},
		{"40.625 rounds to 41 and is medium", budget, onlyWeight("notes", 0.40625), 41, LevelMedium},
		{"zero weights score zero", negotiation, WeightingProfile{StalledThresholdDays: 14}, 0, LevelLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.deal, tt.profile)
			assert.Equal(t, tt.expectedScore, got.Score)
			assert.Equal(t, tt.expectedLevel, got.Level)
		})
	}
}

func TestCompute_InactivityFactor(t *testing.T) {
	p := referenceProfile()

	t.Run("at threshold no factor", func(t *testing.T) {
		got := Compute(Deal{DaysInactive: 14, Stage: "Discovery"}, p)
		assert.Empty(t, got.Factors)
	})

	t.Run("above threshold emits factor", func(t *testing.T) {
		got := Compute(Deal{DaysInactive: 15, Stage: "Discovery"}, p)
		assert.Equal(t, []string{"Inactive for 15 days"}, got.Factors)
	})

	t.Run("saturates at twice the threshold", func(t *testing.T) {
		_, at := ComputeDetailed(Deal{DaysInactive: 28}, p)
		_, beyond := ComputeDetailed(Deal{DaysInactive: 400}, p)
		assert.Equal(t, 1.0, at.Inactivity)
		assert.Equal(t, 1.0, beyond.Inactivity)
	})

	t.Run("non-positive threshold saturates instead of NaN", func(t *testing.T) {
		zero := p
		zero.StalledThresholdDays = 0

		_, idle := ComputeDetailed(Deal{DaysInactive: 3}, zero)
		_, fresh := ComputeDetailed(Deal{DaysInactive: 0}, zero)
		assert.Equal(t, 1.0, idle.Inactivity)
		assert.Equal(t, 0.0, fresh.Inactivity)
	})
}

func TestCompute_StageMatching(t *testing.T) {
	tests := []struct {
		stage         string
		expectedRisk  float64
		expectFactors bool
	}{
		{"Contract Sent", 1, true},
		{"Legal Review", 1, true},
		{"Negotiation", 1, true},
		{"Procurement", 1, true},
		{"negotiation", 0.3, false},
		{"Negotiation ", 0.3, false},
		{"Closed Won", 0.3, false},
		{"", 0.3, false},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			got, c := ComputeDetailed(Deal{Stage: tt.stage}, referenceProfile())
			assert.Equal(t, tt.expectedRisk, c.Stage)
			assert.Equal(t, tt.expectFactors, len(got.Factors) == 1)
		})
	}
}

func TestCompute_AmountFactor(t *testing.T) {
	p := referenceProfile()

	at := Compute(Deal{Amount: 50000}, p)
	assert.Empty(t, at.Factors)

	above := Compute(Deal{Amount: 1250000.5}, p)
	assert.Equal(t, []string{"High-value deal ($1,250,000.5)"}, above.Factors)

	_, c := ComputeDetailed(Deal{Amount: 250000}, p)
	assert.Equal(t, 1.0, c.Amount)
}

func TestCompute_NotesKeywords(t *testing.T) {
	t.Run("every keyword reported in list order", func(t *testing.T) {
		notes := "No Response since the DELAY; legal is BLOCKED, budget stalled"
		got, c := ComputeDetailed(Deal{Notes: notes}, referenceProfile())

		assert.Equal(t, 1.0, c.Notes)
		assert.Equal(t, []string{
			`Notes mention a risk factor ("budget")`,
			`Notes mention a risk factor ("legal")`,
			`Notes mention a risk factor ("blocked")`,
			`Notes mention a risk factor ("delay")`,
			`Notes mention a risk factor ("stalled")`,
			`Notes mention a risk factor ("no response")`,
		}, got.Factors)
	})

	t.Run("substring match", func(t *testing.T) {
		got := Compute(Deal{Notes: "paralegal asked about budgeting"}, referenceProfile())
		assert.Equal(t, []string{
			`Notes mention a risk factor ("budget")`,
			`Notes mention a risk factor ("legal")`,
		}, got.Factors)
	})

	t.Run("multiple keywords do not raise notes risk", func(t *testing.T) {
		one := Compute(Deal{Notes: "budget"}, onlyWeight("notes", 1))
		many := Compute(Deal{Notes: "budget legal delay"}, onlyWeight("notes", 1))
		assert.Equal(t, 100, one.Score)
		assert.Equal(t, one.Score, many.Score)
	})

	t.Run("no keywords", func(t *testing.T) {
		_, c := ComputeDetailed(Deal{Notes: "great call, champion engaged"}, referenceProfile())
		assert.Equal(t, 0.0, c.Notes)
	})
}

func TestCompute_FactorOrdering(t *testing.T) {
	got := Compute(Deal{
		DaysInactive: 40,
		Stage:        "Legal Review",
		Amount:       62000,
		Notes:        "delay expected",
	}, referenceProfile())

	assert.Equal(t, []string{
		"Inactive for 40 days",
		"Deal is currently in a high-friction stage (Legal Review)",
		"High-value deal ($62,000)",
		`Notes mention a risk factor ("delay")`,
	}, got.Factors)
}

func TestCompute_UnclampedWhenWeightsExceedOne(t *testing.T) {
	all := WeightingProfile{
		StalledThresholdDays: 14,
		RiskWeightAmount:     1,
		RiskWeightStage:      1,
		RiskWeightInactivity: 1,
		RiskWeightNotes:      1,
	}
	got := Compute(Deal{DaysInactive: 90, Stage: "Procurement", Amount: 500000, Notes: "blocked"}, all)

	assert.Equal(t, 400, got.Score)
	assert.Equal(t, LevelHigh, got.Level)
}

func TestCompute_NegativeWeightsPropagate(t *testing.T) {
	got := Compute(Deal{Stage: "Negotiation"}, onlyWeight("stage", -0.5))
	assert.Equal(t, -50, got.Score)
	assert.Equal(t, LevelLow, got.Level)
}

// ==========================
// Property Tests
// ==========================

func randomDeal(r *rand.Rand) Deal {
	stages := append([]string{"Discovery", "Proposal", "Qualified", "negotiation"}, RiskyStages...)
	notes := []string{"", "budget", "all good", "legal blocked", "No response", "delay + stalled"}
	return Deal{
		DaysInactive: r.Intn(120),
		Stage:        stages[r.Intn(len(stages))],
		Amount:       math.Round(r.Float64()*250000*100) / 100,
		Notes:        notes[r.Intn(len(notes))],
	}
}

func randomProfile(r *rand.Rand) WeightingProfile {
	w := [4]float64{r.Float64(), r.Float64(), r.Float64(), r.Float64()}
	sum := w[0] + w[1] + w[2] + w[3]
	if sum > 1 {
		for i := range w {
			w[i] /= sum
		}
	}
	return WeightingProfile{
		StalledThresholdDays: float64(1 + r.Intn(60)),
		RiskWeightAmount:     w[0],
		RiskWeightStage:      w[1],
		RiskWeightInactivity: w[2],
		RiskWeightNotes:      w[3],
	}
}

func TestCompute_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		deal := randomDeal(r)
		profile := randomProfile(r)

		first := Compute(deal, profile)
		second := Compute(deal, profile)

		// determinism
		require.Equal(t, first, second)

		// bounds for weights summing to at most one
		require.GreaterOrEqual(t, first.Score, 0, "deal=%+v profile=%+v", deal, profile)
		require.LessOrEqual(t, first.Score, 100, "deal=%+v profile=%+v", deal, profile)

		// level consistency
		switch first.Level {
		case LevelHigh:
			require.Greater(t, first.Score, 70)
		case LevelMedium:
			require.Greater(t, first.Score, 40)
			require.LessOrEqual(t, first.Score, 70)
		case LevelLow:
			require.LessOrEqual(t, first.Score, 40)
		default:
			t.Fatalf("unexpected level %q", first.Level)
		}
	}
}

func TestCompute_MonotonicInInactivity(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		deal := randomDeal(r)
		profile := randomProfile(r)

		prev := math.MinInt
		for days := 0; days <= 150; days++ {
			deal.DaysInactive = days
			score := Compute(deal, profile).Score
			require.GreaterOrEqual(t, score, prev, "days=%d profile=%+v", days, profile)
			prev = score
		}
	}
}

func TestCompute_DoesNotShareFactorSlices(t *testing.T) {
	deal := Deal{Notes: "budget"}
	a := Compute(deal, referenceProfile())
	a.Factors[0] = "mutated"

	b := Compute(deal, referenceProfile())
	assert.Equal(t, `Notes mention a risk factor ("budget")`, b.Factors[0])
}

// ==========================
// Helpers
// ==========================

func TestClassify(t *testing.T) {
	tests := []struct {
		score    int
		expected Level
	}{
		{-10, LevelLow},
		{0, LevelLow},
		{40, LevelLow},
		{41, LevelMedium},
		{70, LevelMedium},
		{71, LevelHigh},
		{400, LevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.score), "score %d", tt.score)
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in       float64
		expected int
	}{
		{9.4, 9},
		{24.14, 24},
		{0.5, 1},
		{2.5, 3},
		{-2.5, -2},
		{-2.6, -3},
		{92.00000000000001, 92},
		{0.49999999999999994, 0},
		{70.49999999999999, 70},
		{4503599627370497, 4503599627370497},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, RoundHalfUp(tt.in), "in %v", tt.in)
	}
}

func TestDefaultProfile(t *testing.T) {
	assert.Equal(t, referenceProfile(), DefaultProfile())
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkCompute(b *testing.B) {
	deal := Deal{DaysInactive: 30, Stage: "Negotiation", Amount: 80000, Notes: "budget concerns, legal review pending"}
	profile := referenceProfile()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compute(deal, profile)
	}
}
