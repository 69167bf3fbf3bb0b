package seed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/pkg/logger"
)

// Profile selects how disciplined the simulated user is.
type Profile string

// Supported profiles.
const (
	ProfileDisciplined Profile = "disciplined"
	ProfileAverage     Profile = "average"
	ProfileStruggling  Profile = "struggling"
	ProfileMixed       Profile = "mixed"
)

// Profiles lists every supported profile.
var Profiles = []Profile{ProfileDisciplined, ProfileAverage, ProfileStruggling, ProfileMixed}

// ParseProfile converts s to a Profile.
func ParseProfile(s string) (Profile, error) {
	for _, p := range Profiles {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProfile, s)
}

// dayKind is the quality of one simulated day.
type dayKind int

const (
	dayPerfect dayKind = iota
	dayGood
	daySlip
	dayBad
	dayEmpty
)

// compliance ranges per day kind: the fraction of each goal achieved.
var compliance = map[dayKind][2]float64{
	dayPerfect: {1.0, 1.2},
	dayGood:    {0.75, 1.05},
	daySlip:    {0.45, 0.85},
	dayBad:     {0.0, 0.5},
}

// dayWeights gives the relative frequency of each day kind per profile.
var dayWeights = map[Profile][5]int{
	ProfileDisciplined: {6, 3, 1, 0, 0},
	ProfileAverage:     {2, 4, 3, 1, 1},
	ProfileStruggling:  {0, 2, 3, 4, 2},
	ProfileMixed:       {2, 2, 2, 2, 1},
}

// recordChance is the probability a goal is logged on a non-empty day.
const recordChance = 0.8

// seedNamespace keeps generated write IDs stable across runs with one seed.
var seedNamespace = uuid.MustParse("6f1c8d2e-5b0a-4e8f-9a43-1d2c3b4a5e6f")

// Generate builds the samples for cfg. Equal configs yield equal samples,
// including write IDs, so replaying a run is idempotent.
func Generate(ctx context.Context, cfg *Config) ([]Sample, error) {
	if cfg.Days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", ErrInvalidConfig)
	}
	if !cfg.End.Valid() {
		return nil, fmt.Errorf("%w: end date %q", ErrInvalidConfig, string(cfg.End))
	}
	weights, ok := dayWeights[cfg.Profile]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, string(cfg.Profile))
	}

	logger.GetOrNop().Info(ctx, "generating samples",
		logger.Int("days", cfg.Days),
		logger.String("profile", string(cfg.Profile)),
	)

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // synthetic data
	samples := make([]Sample, 0, cfg.Days*goals.Count)
	for offset := cfg.Days - 1; offset >= 0; offset-- {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		date, err := cfg.End.AddDays(-offset)
		if err != nil {
			return nil, err
		}
		kind := pickDay(rng, weights)
		if kind == dayEmpty {
			continue
		}
		for _, c := range goals.Defaults().All() {
			if rng.Float64() >= recordChance {
				continue
			}
			samples = append(samples, Sample{
				WriteID: writeID(cfg.Seed, date, c.Key),
				Date:    date,
				Key:     c.Key,
				Value:   valueFor(rng, c, kind),
			})
		}
	}
	return samples, nil
}

func pickDay(rng *rand.Rand, weights [5]int) dayKind {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := rng.Intn(total)
	for i, w := range weights {
		if n < w {
			return dayKind(i)
		}
		n -= w
	}
	return dayGood
}

// valueFor maps a compliance draw onto c's scale. Full compliance on a
// minimize goal is exactly its limit; zero compliance is double the limit.
func valueFor(rng *rand.Rand, c goals.Config, kind dayKind) float64 {
	r := compliance[kind]
	f := r[0] + rng.Float64()*(r[1]-r[0])
	var v float64
	if c.Direction == goals.Minimize {
		v = c.Threshold * math.Max(0, 2-f)
	} else {
		v = c.Threshold * f
	}
	if c.Threshold >= 100 {
		return math.Round(v)
	}
	return math.Round(v*10) / 10
}

func writeID(seed int64, date progress.DateKey, key goals.Key) string {
	name := strconv.FormatInt(seed, 10) + "/" + string(date) + "/" + string(key)
	return uuid.NewSHA1(seedNamespace, []byte(name)).String()
}
