package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

const tieEpsilon = 1e-9

// observation is one outcome tagged with the bucket keys it belongs to.
type observation struct {
	keys    []string
	outcome float64
}

type bucketStat struct {
	key  string
	n    int
	mean float64
}

// detector describes one factor: how to read it off the joined history and how
// to phrase a bucket of it.
type detector struct {
	kind    internal.PatternType
	factor  string
	unit    string
	enabled func(internal.User) bool
	observe func(e *Engine, joined []joinedDose) []observation
	phrase  func(key string) string
}

// factorSummary is a detector's bucket statistics over a history.
type factorSummary struct {
	det     detector
	global  float64
	buckets []bucketStat
}

var detectors = []detector{
	{
		kind:    internal.PatternFood,
		factor:  "food",
		unit:    "doses",
		observe: perDose(foodKey),
		phrase:  foodPhrase,
	},
	{
		kind:    internal.PatternDay,
		factor:  "day",
		unit:    "doses",
		observe: weekdayObservations,
		phrase:  func(key string) string { return "on " + key + "s" },
	},
	{
		kind:    internal.PatternSleep,
		factor:  "sleep",
		unit:    "doses",
		observe: perDose(sleepKey),
		phrase:  sleepPhrase,
	},
	{
		kind:    internal.PatternEnvironment,
		factor:  "environment",
		unit:    "doses",
		observe: perDose(environmentKey),
		phrase:  func(key string) string { return "in a " + key + " setting" },
	},
	{
		kind:    internal.PatternCaffeine,
		factor:  "caffeine",
		unit:    "doses",
		observe: perDose(caffeineKey),
		phrase:  caffeinePhrase,
	},
	{
		kind:    internal.PatternCycle,
		factor:  "cycle",
		unit:    "doses",
		enabled: func(u internal.User) bool { return u.MenstrualTracking },
		observe: perDose(cycleKey),
		phrase:  func(key string) string { return "during your " + key + " phase" },
	},
	{
		kind:    internal.PatternBody,
		factor:  "body",
		unit:    "check-ins",
		observe: bodyObservations,
		phrase:  func(key string) string { return "when you notice sensations in your " + key },
	},
}

// DetectPatterns mines the joined history for recurring correlations between a
// context factor and outcome. Each detector emits at most one pattern; the
// result follows the fixed detector order, anti-pattern last.
func (e *Engine) DetectPatterns(user internal.User, doses []internal.DoseLog, checkIns []internal.CheckIn) []internal.Pattern {
	joined := withCheckIns(e.join(doses, checkIns))

	patterns := []internal.Pattern{}
	summaries := make([]factorSummary, 0, len(detectors))
	for _, det := range detectors {
		if det.enabled != nil && !det.enabled(user) {
			continue
		}
		summary, ok := e.summarise(det, joined)
		if !ok {
			continue
		}
		summaries = append(summaries, summary)
		if p, ok := e.strongest(summary); ok {
			patterns = append(patterns, p)
		}
	}
	if p, ok := e.weakest(summaries); ok {
		patterns = append(patterns, p)
	}
	return patterns
}

func (e *Engine) summarise(det detector, joined []joinedDose) (factorSummary, bool) {
	obs := det.observe(e, joined)
	if len(obs) < e.cfg.MinSamples {
		return factorSummary{}, false
	}

	total := 0.0
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, o := range obs {
		total += o.outcome
		for _, k := range o.keys {
			sums[k] += o.outcome
			counts[k]++
		}
	}

	buckets := make([]bucketStat, 0, len(counts))
	for k, n := range counts {
		buckets = append(buckets, bucketStat{key: k, n: n, mean: sums[k] / float64(n)})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].key < buckets[j].key })

	return factorSummary{det: det, global: total / float64(len(obs)), buckets: buckets}, true
}

// strongest picks the bucket sitting furthest above the global mean.
func (e *Engine) strongest(s factorSummary) (internal.Pattern, bool) {
	var best *bucketStat
	bestDev := 0.0
	for i := range s.buckets {
		b := &s.buckets[i]
		if b.n < e.cfg.MinSamples {
			continue
		}
		dev := b.mean - s.global
		if dev < e.cfg.SignificanceMargin-tieEpsilon {
			continue
		}
		if best == nil || better(dev, b.n, b.key, bestDev, best.n, best.key) {
			best, bestDev = b, dev
		}
	}
	if best == nil {
		return internal.Pattern{}, false
	}
	return internal.Pattern{
		Type:        s.det.kind,
		Title:       "You respond best " + s.det.phrase(best.key),
		Description: describe(s.det.unit, *best, s.global),
		Confidence:  e.patternConfidence(best.n, bestDev),
	}, true
}

// weakest scans every factor for the bucket sitting furthest below its global mean.
func (e *Engine) weakest(summaries []factorSummary) (internal.Pattern, bool) {
	var (
		best    *bucketStat
		bestSum factorSummary
		bestKey string
		bestDev float64
	)
	for _, s := range summaries {
		for i := range s.buckets {
			b := &s.buckets[i]
			if b.n < e.cfg.MinSamples {
				continue
			}
			dev := s.global - b.mean
			if dev < e.cfg.AntiPatternMargin-tieEpsilon {
				continue
			}
			key := s.det.factor + ":" + b.key
			if best == nil || better(dev, b.n, key, bestDev, best.n, bestKey) {
				best, bestSum, bestKey, bestDev = b, s, key, dev
			}
		}
	}
	if best == nil {
		return internal.Pattern{}, false
	}
	return internal.Pattern{
		Type:        internal.PatternAnti,
		Title:       "Dosing " + bestSum.det.phrase(best.key) + " tends to go poorly",
		Description: describe(bestSum.det.unit, *best, bestSum.global),
		Confidence:  e.patternConfidence(best.n, bestDev),
	}, true
}

// better orders candidates by deviation, then sample size, then key.
func better(dev float64, n int, key string, bestDev float64, bestN int, bestKey string) bool {
	if math.Abs(dev-bestDev) > tieEpsilon {
		return dev > bestDev
	}
	if n != bestN {
		return n > bestN
	}
	return key < bestKey
}

func (e *Engine) patternConfidence(n int, deviation float64) float64 {
	c := 50 + 10*float64(n-e.cfg.MinSamples) + 10*math.Abs(deviation)
	return math.Max(0, math.Min(100, c))
}

func describe(unit string, b bucketStat, global float64) string {
	return fmt.Sprintf("Across %d %s your average outcome was %.1f, against %.1f overall.", b.n, unit, b.mean, global)
}

// perDose builds observations from a single optional key per dose.
func perDose(key func(internal.DoseLog) (string, bool)) func(*Engine, []joinedDose) []observation {
	return func(e *Engine, joined []joinedDose) []observation {
		obs := make([]observation, 0, len(joined))
		for _, j := range joined {
			k, ok := key(j.dose)
			if !ok {
				continue
			}
			obs = append(obs, observation{keys: []string{k}, outcome: j.outcome(e.cfg.FloorPenalty)})
		}
		return obs
	}
}

func weekdayObservations(e *Engine, joined []joinedDose) []observation {
	obs := make([]observation, 0, len(joined))
	for _, j := range joined {
		day := j.dose.Timestamp.In(e.cfg.Location).Weekday().String()
		obs = append(obs, observation{keys: []string{day}, outcome: j.outcome(e.cfg.FloorPenalty)})
	}
	return obs
}

// bodyObservations yields one observation per check-in that reports body sensations.
func bodyObservations(e *Engine, joined []joinedDose) []observation {
	var obs []observation
	for _, j := range joined {
		for _, c := range j.checkIns {
			keys := distinctNormalised(c.BodyMap)
			if len(keys) == 0 {
				continue
			}
			obs = append(obs, observation{keys: keys, outcome: checkInOutcome(c, e.cfg.FloorPenalty)})
		}
	}
	return obs
}

func foodKey(d internal.DoseLog) (string, bool) {
	return string(d.FoodState), d.FoodState != ""
}

func foodPhrase(key string) string {
	switch internal.FoodState(key) {
	case internal.FoodEmpty:
		return "on an empty stomach"
	case internal.FoodLight:
		return "after a light meal"
	case internal.FoodFull:
		return "after a full meal"
	}
	return "with food state " + key
}

const (
	sleepLow    = "low"
	sleepMedium = "medium"
	sleepHigh   = "high"
)

func sleepKey(d internal.DoseLog) (string, bool) {
	if d.SleepHours == nil {
		return "", false
	}
	switch h := *d.SleepHours; {
	case h < 6:
		return sleepLow, true
	case h < 8:
		return sleepMedium, true
	default:
		return sleepHigh, true
	}
}

func sleepPhrase(key string) string {
	switch key {
	case sleepLow:
		return "after under 6 hours of sleep"
	case sleepMedium:
		return "after 6 to 8 hours of sleep"
	default:
		return "after 8 or more hours of sleep"
	}
}

func environmentKey(d internal.DoseLog) (string, bool) {
	if d.Environment == nil {
		return "", false
	}
	k := normalise(*d.Environment)
	return k, k != ""
}

func caffeineKey(d internal.DoseLog) (string, bool) {
	if d.CaffeineTiming != nil && *d.CaffeineTiming != "" {
		return normalise(string(*d.CaffeineTiming)), true
	}
	if d.CaffeineMg != nil && *d.CaffeineMg == 0 {
		return string(internal.CaffeineNone), true
	}
	return "", false
}

func caffeinePhrase(key string) string {
	switch internal.CaffeineTiming(key) {
	case internal.CaffeineNone:
		return "without caffeine"
	case internal.CaffeineBefore:
		return "with caffeine before your dose"
	case internal.CaffeineWith:
		return "with caffeine alongside your dose"
	case internal.CaffeineAfter:
		return "with caffeine after your dose"
	}
	return "with caffeine timed " + key
}

// cycleKey maps a cycle day onto its phase.
func cycleKey(d internal.DoseLog) (string, bool) {
	if d.CycleDay == nil || *d.CycleDay < 1 {
		return "", false
	}
	switch day := *d.CycleDay; {
	case day <= 5:
		return "menstrual", true
	case day <= 13:
		return "follicular", true
	case day <= 16:
		return "ovulatory", true
	default:
		return "luteal", true
	}
}

func normalise(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func distinctNormalised(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		k := normalise(v)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
