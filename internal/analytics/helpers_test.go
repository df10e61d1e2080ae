package analytics

import (
	"fmt"
	"time"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

// refNow is a Tuesday.
var refNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return New(DefaultConfig()).WithClock(FixedClock(refNow))
}

func dose(id string, amount float64, at time.Time) internal.DoseLog {
	return internal.DoseLog{
		ID:        id,
		UserID:    "u1",
		BatchID:   "b1",
		Amount:    amount,
		Timestamp: at,
		FoodState: internal.FoodEmpty,
		Tags:      []string{},
	}
}

func checkInFor(id string, d internal.DoseLog, energy, clarity, stability int) internal.CheckIn {
	doseID := d.ID
	return internal.CheckIn{
		ID:        id,
		UserID:    d.UserID,
		DoseID:    &doseID,
		Timestamp: d.Timestamp.Add(2 * time.Hour),
		Phase:     internal.PhaseActive,
		Signals:   internal.Signals{Energy: energy, Clarity: clarity, Stability: stability},
		BodyMap:   []string{},
	}
}

// weekly returns the i-th Tuesday going back from refNow.
func weekly(i int) time.Time {
	return refNow.AddDate(0, 0, -7*(i+1))
}

type signals [3]int

// series appends n weekly doses built by mut, each with one linked check-in.
func series(doses []internal.DoseLog, checkIns []internal.CheckIn, n int, s signals, mut func(*internal.DoseLog)) ([]internal.DoseLog, []internal.CheckIn) {
	for i := 0; i < n; i++ {
		idx := len(doses)
		d := dose(fmt.Sprintf("d%03d", idx), 100, weekly(idx))
		d.FoodState = ""
		if mut != nil {
			mut(&d)
		}
		doses = append(doses, d)
		checkIns = append(checkIns, checkInFor(fmt.Sprintf("c%03d", idx), d, s[0], s[1], s[2]))
	}
	return doses, checkIns
}

func ptr[T any](v T) *T { return &v }
