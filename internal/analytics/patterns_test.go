package analytics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

func withFood(f internal.FoodState) func(*internal.DoseLog) {
	return func(d *internal.DoseLog) { d.FoodState = f }
}

func foodHistory() ([]internal.DoseLog, []internal.CheckIn) {
	var doses []internal.DoseLog
	var checkIns []internal.CheckIn
	doses, checkIns = series(doses, checkIns, 8, signals{5, 5, 4}, withFood(internal.FoodEmpty))
	doses, checkIns = series(doses, checkIns, 8, signals{3, 3, 3}, withFood(internal.FoodLight))
	doses, checkIns = series(doses, checkIns, 8, signals{3, 3, 3}, withFood(internal.FoodFull))
	return doses, checkIns
}

func TestDetectPatterns_BelowFloor(t *testing.T) {
	e := testEngine()
	d1 := dose("a", 100, refNow.AddDate(0, 0, -3))
	d2 := dose("b", 100, refNow.AddDate(0, 0, -2))
	d3 := dose("c", 100, refNow.AddDate(0, 0, -1))
	doses := []internal.DoseLog{d1, d2, d3}
	checkIns := []internal.CheckIn{checkInFor("x", d1, 5, 5, 5), checkInFor("y", d2, 1, 1, 1)}

	patterns := e.DetectPatterns(internal.DefaultUser("u1"), doses, checkIns)
	assert.NotNil(t, patterns)
	assert.Empty(t, patterns)
}

func TestDetectPatterns_FoodCorrelation(t *testing.T) {
	doses, checkIns := foodHistory()
	patterns := testEngine().DetectPatterns(internal.DefaultUser("u1"), doses, checkIns)

	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, internal.PatternFood, p.Type)
	assert.Equal(t, "You respond best on an empty stomach", p.Title)
	assert.Contains(t, p.Description, "Across 8 doses")
	// n at the floor, deviation 14/3 - 32/9 = 10/9.
	assert.InDelta(t, 50+100.0/9, p.Confidence, 1e-9)
}

func TestDetectPatterns_AntiPattern(t *testing.T) {
	var doses []internal.DoseLog
	var checkIns []internal.CheckIn
	doses, checkIns = series(doses, checkIns, 8, signals{4, 4, 4}, withFood(internal.FoodEmpty))
	doses, checkIns = series(doses, checkIns, 8, signals{4, 4, 4}, withFood(internal.FoodLight))
	doses, checkIns = series(doses, checkIns, 8, signals{2, 2, 2}, withFood(internal.FoodFull))

	patterns := testEngine().DetectPatterns(internal.DefaultUser("u1"), doses, checkIns)
	require.Len(t, patterns, 1)
	assert.Equal(t, internal.PatternAnti, patterns[0].Type)
	assert.Equal(t, "Dosing after a full meal tends to go poorly", patterns[0].Title)
	assert.InDelta(t, 50+10*(4.0/3), patterns[0].Confidence, 1e-9)
}

func TestDetectPatterns_WinningBucketNeedsFloor(t *testing.T) {
	var doses []internal.DoseLog
	var checkIns []internal.CheckIn
	// A strong bucket with only 7 samples must not win.
	doses, checkIns = series(doses, checkIns, 7, signals{5, 5, 5}, withFood(internal.FoodEmpty))
	doses, checkIns = series(doses, checkIns, 12, signals{4, 4, 3}, withFood(internal.FoodFull))

	patterns := testEngine().DetectPatterns(internal.DefaultUser("u1"), doses, checkIns)
	assert.Empty(t, patterns)
}

func TestDetectPatterns_OrderIndependent(t *testing.T) {
	doses, checkIns := foodHistory()
	e := testEngine()
	user := internal.DefaultUser("u1")
	want := e.DetectPatterns(user, doses, checkIns)

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 5; i++ {
		d := append([]internal.DoseLog(nil), doses...)
		c := append([]internal.CheckIn(nil), checkIns...)
		rng.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
		rng.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
		assert.Equal(t, want, e.DetectPatterns(user, d, c))
	}
}

func cycleHistory() ([]internal.DoseLog, []internal.CheckIn) {
	var doses []internal.DoseLog
	var checkIns []internal.CheckIn
	doses, checkIns = series(doses, checkIns, 8, signals{5, 5, 5}, func(d *internal.DoseLog) { d.CycleDay = ptr(20) })
	doses, checkIns = series(doses, checkIns, 8, signals{3, 3, 3}, func(d *internal.DoseLog) { d.CycleDay = ptr(8) })
	return doses, checkIns
}

func TestDetectPatterns_CycleOnlyWhenTracking(t *testing.T) {
	doses, checkIns := cycleHistory()
	e := testEngine()

	user := internal.DefaultUser("u1")
	assert.Empty(t, e.DetectPatterns(user, doses, checkIns))

	user.MenstrualTracking = true
	patterns := e.DetectPatterns(user, doses, checkIns)
	require.Len(t, patterns, 2)
	assert.Equal(t, internal.PatternCycle, patterns[0].Type)
	assert.Equal(t, "You respond best during your luteal phase", patterns[0].Title)
	assert.Equal(t, internal.PatternAnti, patterns[1].Type)
	assert.Equal(t, "Dosing during your follicular phase tends to go poorly", patterns[1].Title)
}

func TestDetectPatterns_SleepAndEnvironment(t *testing.T) {
	var doses []internal.DoseLog
	var checkIns []internal.CheckIn
	doses, checkIns = series(doses, checkIns, 8, signals{5, 4, 5}, func(d *internal.DoseLog) {
		d.SleepHours = ptr(8.5)
		d.Environment = ptr("Nature")
	})
	doses, checkIns = series(doses, checkIns, 8, signals{4, 3, 4}, func(d *internal.DoseLog) {
		d.SleepHours = ptr(7.0)
		d.Environment = ptr("home")
	})
	doses, checkIns = series(doses, checkIns, 8, signals{3, 3, 3}, func(d *internal.DoseLog) {
		d.SleepHours = ptr(5.0)
		d.Environment = ptr("work")
	})

	patterns := testEngine().DetectPatterns(internal.DefaultUser("u1"), doses, checkIns)
	types := make([]internal.PatternType, 0, len(patterns))
	for _, p := range patterns {
		types = append(types, p.Type)
	}
	assert.Equal(t, []internal.PatternType{internal.PatternSleep, internal.PatternEnvironment, internal.PatternAnti}, types)
	assert.Equal(t, "You respond best after 8 or more hours of sleep", patterns[0].Title)
	assert.Equal(t, "You respond best in a nature setting", patterns[1].Title)
	// Sleep and environment tie on deviation and sample size; "environment:work" < "sleep:low".
	assert.Equal(t, "Dosing in a work setting tends to go poorly", patterns[2].Title)
}

func TestDetectPatterns_CaffeineTiming(t *testing.T) {
	var doses []internal.DoseLog
	var checkIns []internal.CheckIn
	doses, checkIns = series(doses, checkIns, 8, signals{5, 5, 5}, func(d *internal.DoseLog) { d.CaffeineMg = ptr(0.0) })
	doses, checkIns = series(doses, checkIns, 8, signals{4, 3, 4}, func(d *internal.DoseLog) { d.CaffeineTiming = ptr(internal.CaffeineWith) })
	doses, checkIns = series(doses, checkIns, 8, signals{4, 3, 4}, func(d *internal.DoseLog) { d.CaffeineTiming = ptr(internal.CaffeineBefore) })

	patterns := testEngine().DetectPatterns(internal.DefaultUser("u1"), doses, checkIns)
	require.Len(t, patterns, 1)
	assert.Equal(t, internal.PatternCaffeine, patterns[0].Type)
	assert.Equal(t, "You respond best without caffeine", patterns[0].Title)
}

func TestDetectPatterns_DayClustering(t *testing.T) {
	var doses []internal.DoseLog
	var checkIns []internal.CheckIn
	doses, checkIns = series(doses, checkIns, 8, signals{5, 5, 5}, nil)
	doses, checkIns = series(doses, checkIns, 8, signals{3, 3, 3}, func(d *internal.DoseLog) {
		d.Timestamp = d.Timestamp.AddDate(0, 0, 2) // Thursday
	})

	patterns := testEngine().DetectPatterns(internal.DefaultUser("u1"), doses, checkIns)
	require.Len(t, patterns, 2)
	assert.Equal(t, internal.PatternDay, patterns[0].Type)
	assert.Equal(t, "You respond best on Tuesdays", patterns[0].Title)
	assert.Equal(t, "Dosing on Thursdays tends to go poorly", patterns[1].Title)
}

func TestDetectPatterns_BodyCluster(t *testing.T) {
	var doses []internal.DoseLog
	var checkIns []internal.CheckIn
	doses, checkIns = series(doses, checkIns, 8, signals{5, 5, 5}, nil)
	doses, checkIns = series(doses, checkIns, 8, signals{3, 3, 3}, nil)
	for i := range checkIns {
		if i < 8 {
			checkIns[i].BodyMap = []string{"Chest", "chest "}
		} else {
			checkIns[i].BodyMap = []string{"jaw"}
		}
	}

	patterns := testEngine().DetectPatterns(internal.DefaultUser("u1"), doses, checkIns)
	require.Len(t, patterns, 2)
	assert.Equal(t, internal.PatternBody, patterns[0].Type)
	assert.Equal(t, "You respond best when you notice sensations in your chest", patterns[0].Title)
	assert.Contains(t, patterns[0].Description, "Across 8 check-ins")
	assert.Equal(t, internal.PatternAnti, patterns[1].Type)
}

func TestJoin_UnlinkedCheckIns(t *testing.T) {
	e := testEngine()
	first := dose("a", 100, refNow.Add(-96*time.Hour))
	second := dose("b", 100, refNow.Add(-24*time.Hour))

	soon := internal.CheckIn{ID: "soon", Timestamp: second.Timestamp.Add(3 * time.Hour), Signals: internal.Signals{Energy: 4, Clarity: 4, Stability: 4}}
	stale := internal.CheckIn{ID: "stale", Timestamp: first.Timestamp.Add(60 * time.Hour), Signals: internal.Signals{Energy: 4, Clarity: 4, Stability: 4}}
	before := internal.CheckIn{ID: "before", Timestamp: first.Timestamp.Add(-time.Hour), Signals: internal.Signals{Energy: 4, Clarity: 4, Stability: 4}}
	missing := checkInFor("missing", dose("gone", 100, refNow), 4, 4, 4)

	joined := e.join([]internal.DoseLog{second, first}, []internal.CheckIn{soon, stale, before, missing})
	require.Len(t, joined, 2)
	assert.Equal(t, "a", joined[0].dose.ID)
	assert.Empty(t, joined[0].checkIns)
	require.Len(t, joined[1].checkIns, 1)
	assert.Equal(t, "soon", joined[1].checkIns[0].ID)
}

func TestCheckInOutcome_FloorPenalty(t *testing.T) {
	ok := internal.CheckIn{Signals: internal.Signals{Energy: 4, Clarity: 4, Stability: 4}}
	floored := internal.CheckIn{Signals: internal.Signals{Energy: 5, Clarity: 5, Stability: 1}}
	bottom := internal.CheckIn{Signals: internal.Signals{Energy: 1, Clarity: 1, Stability: 1}}

	assert.InDelta(t, 4.0, checkInOutcome(ok, 0.5), 1e-12)
	assert.InDelta(t, 11.0/3-0.5, checkInOutcome(floored, 0.5), 1e-12)
	assert.Equal(t, 1.0, checkInOutcome(bottom, 0.5))
}
