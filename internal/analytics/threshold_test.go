package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

type trial struct {
	amount float64
	n      int
	s      signals
}

// batchHistory logs the trials in order, one dose per day, each with a linked check-in.
func batchHistory(batchID string, trials ...trial) ([]internal.DoseLog, []internal.CheckIn) {
	var doses []internal.DoseLog
	var checkIns []internal.CheckIn
	day := 0
	for _, tr := range trials {
		for i := 0; i < tr.n; i++ {
			day++
			d := dose(fmt.Sprintf("%s-d%02d", batchID, day), tr.amount, refNow.AddDate(0, 0, -60+day))
			d.BatchID = batchID
			doses = append(doses, d)
			checkIns = append(checkIns, checkInFor(fmt.Sprintf("%s-c%02d", batchID, day), d, tr.s[0], tr.s[1], tr.s[2]))
		}
	}
	return doses, checkIns
}

func TestThresholdRange_InsufficientDoses(t *testing.T) {
	doses, checkIns := batchHistory("b1", trial{100, 3, signals{4, 4, 4}})
	res := testEngine().ThresholdRange(doses, checkIns, "b1")

	assert.Nil(t, res.Range)
	assert.Equal(t, internal.AbstainInsufficientDoses, res.Reason)
	assert.Contains(t, res.Message, "doses")
}

func TestThresholdRange_InsufficientCheckIns(t *testing.T) {
	doses, _ := batchHistory("b1", trial{100, 6, signals{4, 4, 4}})
	res := testEngine().ThresholdRange(doses, nil, "b1")

	assert.Nil(t, res.Range)
	assert.Equal(t, internal.AbstainInsufficientCheckIns, res.Reason)
	assert.Contains(t, res.Message, "check-ins")
	assert.Contains(t, res.Message, "6 doses")
}

func TestThresholdRange_DegradationBoundsHigh(t *testing.T) {
	doses, checkIns := batchHistory("b1",
		trial{100, 3, signals{5, 4, 4}},
		trial{150, 4, signals{5, 5, 4}},
		trial{200, 2, signals{3, 2, 2}},
	)
	res := testEngine().ThresholdRange(doses, checkIns, "b1")

	require.NotNil(t, res.Range)
	assert.Empty(t, res.Reason)
	assert.Equal(t, 100.0, res.Range.Low.Dose)
	assert.Equal(t, 150.0, res.Range.Sweet.Dose)
	assert.Equal(t, 150.0, res.Range.High.Dose)
	assert.Equal(t, 68.0, res.Range.Low.Confidence)
	assert.Equal(t, 84.0, res.Range.Sweet.Confidence)
	assert.Equal(t, 84.0, res.Range.High.Confidence)
	assert.Contains(t, res.Message, "9 doses and 9 check-ins")
}

func TestThresholdRange_NoDegradationReachesLargest(t *testing.T) {
	doses, checkIns := batchHistory("b1",
		trial{80, 2, signals{4, 4, 4}},
		trial{120, 2, signals{5, 5, 5}},
		trial{160, 2, signals{4, 4, 4}},
	)
	res := testEngine().ThresholdRange(doses, checkIns, "b1")

	require.NotNil(t, res.Range)
	assert.Equal(t, 80.0, res.Range.Low.Dose)
	assert.Equal(t, 120.0, res.Range.Sweet.Dose)
	assert.Equal(t, 160.0, res.Range.High.Dose)
	assert.LessOrEqual(t, res.Range.Low.Dose, res.Range.Sweet.Dose)
	assert.LessOrEqual(t, res.Range.Sweet.Dose, res.Range.High.Dose)
}

func TestThresholdRange_LowSkipsIneffectiveAmounts(t *testing.T) {
	doses, checkIns := batchHistory("b1",
		trial{50, 2, signals{3, 3, 3}},
		trial{100, 2, signals{4, 4, 3}},
		trial{150, 2, signals{5, 5, 4}},
	)
	res := testEngine().ThresholdRange(doses, checkIns, "b1")

	require.NotNil(t, res.Range)
	assert.Equal(t, 100.0, res.Range.Low.Dose)
	assert.Equal(t, 150.0, res.Range.Sweet.Dose)
}

func TestThresholdRange_LowFallsBackToSmallest(t *testing.T) {
	doses, checkIns := batchHistory("b1",
		trial{50, 2, signals{3, 3, 3}},
		trial{100, 3, signals{3, 3, 2}},
	)
	res := testEngine().ThresholdRange(doses, checkIns, "b1")

	require.NotNil(t, res.Range)
	assert.Equal(t, 50.0, res.Range.Low.Dose)
	assert.Equal(t, 50.0, res.Range.Sweet.Dose)
	assert.Equal(t, 100.0, res.Range.High.Dose)
}

func TestThresholdRange_SweetSpotTies(t *testing.T) {
	doses, checkIns := batchHistory("b1",
		trial{100, 2, signals{4, 4, 4}},
		trial{150, 3, signals{4, 4, 4}},
		trial{200, 3, signals{4, 4, 4}},
	)
	res := testEngine().ThresholdRange(doses, checkIns, "b1")

	require.NotNil(t, res.Range)
	// Larger sample wins, then the smaller amount.
	assert.Equal(t, 150.0, res.Range.Sweet.Dose)
}

func TestThresholdRange_ScopedToBatch(t *testing.T) {
	doses, checkIns := batchHistory("b1", trial{100, 5, signals{4, 4, 4}})
	other, otherCheckIns := batchHistory("b2", trial{300, 5, signals{5, 5, 5}})
	for i := range other {
		other[i].Timestamp = other[i].Timestamp.Add(6 * time.Hour)
		otherCheckIns[i].Timestamp = other[i].Timestamp.Add(2 * time.Hour)
	}
	doses = append(doses, other...)
	checkIns = append(checkIns, otherCheckIns...)

	e := testEngine()
	res := e.ThresholdRange(doses, checkIns, "b1")
	require.NotNil(t, res.Range)
	assert.Equal(t, 100.0, res.Range.Sweet.Dose)
	assert.Equal(t, 100.0, res.Range.High.Dose)

	res = e.ThresholdRange(doses, checkIns, "b2")
	require.NotNil(t, res.Range)
	assert.Equal(t, 300.0, res.Range.Sweet.Dose)

	res = e.ThresholdRange(doses, checkIns, "missing")
	assert.Equal(t, internal.AbstainInsufficientDoses, res.Reason)
}

func TestThresholdRange_UnlinkedCheckInsFollowNearestDose(t *testing.T) {
	doses, checkIns := batchHistory("b1", trial{100, 5, signals{4, 4, 4}})
	for i := range checkIns {
		checkIns[i].DoseID = nil
	}
	res := testEngine().ThresholdRange(doses, checkIns, "b1")
	require.NotNil(t, res.Range)
	assert.Equal(t, 100.0, res.Range.Sweet.Dose)
}
