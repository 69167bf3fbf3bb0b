// Package goals defines the six tracked habit goals, their built-in defaults
// and the per-field merge of user overrides on top of them.
package goals

import (
	"math"
)

// Key identifies one of the fixed tracked metrics.
type Key string

// The closed set of goal keys.
const (
	Hydration  Key = "hydration"
	Activity   Key = "activity"
	Recovery   Key = "recovery"
	Tasks      Key = "tasks"
	ScreenTime Key = "screen_time"
	Calories   Key = "calories"
)

// Keys lists every goal key in canonical order.
var Keys = [Count]Key{Hydration, Activity, Recovery, Tasks, ScreenTime, Calories}

// Count is the number of goals; a Table always holds exactly this many.
const Count = 6

// Valid reports whether k belongs to the closed key set.
func (k Key) Valid() bool {
	return k.index() >= 0
}

func (k Key) index() int {
	for i, key := range Keys {
		if key == k {
			return i
		}
	}
	return -1
}

// ParseKey converts s to a Key.
func ParseKey(s string) (Key, error) {
	k := Key(s)
	if !k.Valid() {
		return "", ErrUnknownKey
	}
	return k, nil
}

// Direction tells whether more or less of a metric is better.
type Direction uint8

const (
	// Maximize goals are met once the value reaches the target.
	Maximize Direction = iota + 1
	// Minimize goals are met while the value stays under the limit.
	Minimize
)

func (d Direction) String() string {
	switch d {
	case Maximize:
		return "maximize"
	case Minimize:
		return "minimize"
	default:
		return "unknown"
	}
}

// FallbackWeight replaces a weight outside 1..MaxWeight at scoring time.
const FallbackWeight = 2

// MaxWeight bounds a goal weight so that weight sums stay exact.
const MaxWeight = 1_000_000

func validWeight(w int) bool {
	return w > 0 && w <= MaxWeight
}

// Config is the effective configuration of one goal.
type Config struct {
	Key    Key
	Weight int
	// Threshold is the target of a Maximize goal or the limit of a Minimize goal.
	Threshold float64
	Direction Direction
	Unit      string
	Active    bool
}

// EffectiveWeight returns Weight, or FallbackWeight when it is out of range.
func (c Config) EffectiveWeight() int {
	if !validWeight(c.Weight) {
		return FallbackWeight
	}
	return c.Weight
}

// HasThreshold reports whether the threshold can produce a penalty.
func (c Config) HasThreshold() bool {
	return c.Threshold > 0 && !math.IsInf(c.Threshold, 0) && !math.IsNaN(c.Threshold)
}

// definitions carries the defaults. Direction is a property of the goal
// definition and never comes from user data.
var definitions = [Count]Config{
	{Key: Hydration, Weight: 2, Threshold: 2500, Direction: Maximize, Unit: "ml", Active: true},
	{Key: Activity, Weight: 3, Threshold: 10000, Direction: Maximize, Unit: "steps", Active: true},
	{Key: Recovery, Weight: 2, Threshold: 8, Direction: Maximize, Unit: "hours", Active: true},
	{Key: Tasks, Weight: 1, Threshold: 5, Direction: Maximize, Unit: "items", Active: true},
	{Key: ScreenTime, Weight: 2, Threshold: 3.5, Direction: Minimize, Unit: "hours", Active: true},
	{Key: Calories, Weight: 2, Threshold: 2200, Direction: Minimize, Unit: "kcal", Active: true},
}

// DirectionOf returns the direction attached to key's definition.
func DirectionOf(k Key) Direction {
	if i := k.index(); i >= 0 {
		return definitions[i].Direction
	}
	return 0
}

// Default returns the built-in configuration of key.
func Default(k Key) (Config, bool) {
	i := k.index()
	if i < 0 {
		return Config{}, false
	}
	return definitions[i], true
}

// Table holds the configuration of all six goals. The zero value is not
// usable; obtain one from Defaults, Merge or Load.
type Table struct {
	configs [Count]Config
}

// Defaults returns the built-in table.
func Defaults() Table {
	return Table{configs: definitions}
}

// Get returns the configuration for k.
func (t Table) Get(k Key) (Config, bool) {
	i := k.index()
	if i < 0 {
		return Config{}, false
	}
	return t.configs[i], true
}

// All returns the six configurations in canonical order.
func (t Table) All() []Config {
	out := make([]Config, Count)
	copy(out, t.configs[:])
	return out
}

// Active returns the active goals in canonical order.
func (t Table) Active() []Config {
	out := make([]Config, 0, Count)
	for _, c := range t.configs {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}

// TotalActiveWeight sums the effective weights of active goals.
func (t Table) TotalActiveWeight() int {
	total := 0
	for _, c := range t.configs {
		if c.Active {
			total += c.EffectiveWeight()
		}
	}
	return total
}

// With applies a single-goal override and returns the new table. Invalid
// field values are rejected with an error instead of being ignored.
func (t Table) With(k Key, o Override) (Table, error) {
	i := k.index()
	if i < 0 {
		return t, ErrUnknownKey
	}
	if err := o.Validate(); err != nil {
		return t, err
	}
	t.configs[i], _ = applyOverride(t.configs[i], o)
	return t, nil
}

// Overrides returns the full override form of t, suitable for persistence.
func (t Table) Overrides() Overrides {
	out := make(Overrides, Count)
	for _, c := range t.configs {
		weight, threshold, unit, active := c.Weight, c.Threshold, c.Unit, c.Active
		out[c.Key] = Override{Weight: &weight, Threshold: &threshold, Unit: &unit, Active: &active}
	}
	return out
}
