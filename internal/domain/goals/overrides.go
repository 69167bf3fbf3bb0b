package goals

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Override carries the fields a user changed for one goal. Nil fields keep
// the value of the table the override is merged into.
type Override struct {
	Weight    *int
	Threshold *float64
	Unit      *string
	Active    *bool
}

// Overrides maps goal keys to their partial overrides.
type Overrides map[Key]Override

// Violation describes an override field that was dropped during a merge.
type Violation struct {
	Key   Key
	Field string
	Value any
}

func (v Violation) String() string {
	return fmt.Sprintf("%s.%s=%v", v.Key, v.Field, v.Value)
}

// Validate reports the first field that would break the table invariants.
func (o Override) Validate() error {
	if o.Weight != nil && !validWeight(*o.Weight) {
		return fmt.Errorf("%w: weight must be between 1 and %d", ErrInvalidOverride, MaxWeight)
	}
	if o.Threshold != nil && !validThreshold(*o.Threshold) {
		return fmt.Errorf("%w: threshold must be a positive finite number", ErrInvalidOverride)
	}
	return nil
}

func validThreshold(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// applyOverride merges o into c field by field and returns the fields it had
// to drop.
func applyOverride(c Config, o Override) (Config, []Violation) {
	var dropped []Violation
	if o.Weight != nil {
		if validWeight(*o.Weight) {
			c.Weight = *o.Weight
		} else {
			dropped = append(dropped, Violation{Key: c.Key, Field: "weight", Value: *o.Weight})
		}
	}
	if o.Threshold != nil {
		if validThreshold(*o.Threshold) {
			c.Threshold = *o.Threshold
		} else {
			dropped = append(dropped, Violation{Key: c.Key, Field: "threshold", Value: *o.Threshold})
		}
	}
	if o.Unit != nil {
		c.Unit = *o.Unit
	}
	if o.Active != nil {
		c.Active = *o.Active
	}
	return c, dropped
}

// Merge applies overrides on top of base, key by key and field by field.
// Keys without an override keep the base configuration. Fields that would
// break the invariants are dropped and returned as violations.
func Merge(base Table, overrides Overrides) (Table, []Violation) {
	var violations []Violation
	for i, c := range base.configs {
		o, ok := overrides[c.Key]
		if !ok {
			continue
		}
		merged, dropped := applyOverride(c, o)
		base.configs[i] = merged
		violations = append(violations, dropped...)
	}
	return base, violations
}

// Load decodes a stored override payload and merges it with the defaults.
// An empty payload yields the defaults. A malformed payload yields the
// defaults together with an error wrapping ErrMalformed, so callers can log
// it; no partially decoded data is ever used.
func Load(payload []byte) (Table, []Violation, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return Defaults(), nil, nil
	}
	overrides, err := DecodeOverrides(payload)
	if err != nil {
		return Defaults(), nil, err
	}
	t, violations := Merge(Defaults(), overrides)
	return t, violations, nil
}

// wireGoal is the stored JSON shape of one goal. Maximize goals use target,
// minimize goals use limit; on input target wins when both are present.
type wireGoal struct {
	Weight   *float64 `json:"weight,omitempty"`
	Target   *float64 `json:"target,omitempty"`
	Limit    *float64 `json:"limit,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
	IsActive *bool    `json:"isActive,omitempty"`
}

// DecodeOverrides parses a stored override payload. Unknown keys are
// ignored; anything that is not an object of objects with the expected
// field types is reported as ErrMalformed.
func DecodeOverrides(payload []byte) (Overrides, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(Overrides, len(raw))
	for name, msg := range raw {
		k := Key(name)
		if !k.Valid() {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		var w wireGoal
		dec := json.NewDecoder(bytes.NewReader(msg))
		if err := dec.Decode(&w); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
		}
		out[k] = w.override()
	}
	return out, nil
}

// storedWeight rounds a stored weight. Values that do not fit are mapped just
// outside the valid range so the merge reports them and keeps the default.
func storedWeight(v float64) int {
	switch {
	case math.IsNaN(v) || v < 0:
		return -1
	case v > MaxWeight:
		return MaxWeight + 1
	default:
		return int(math.Round(v))
	}
}

func (w wireGoal) override() Override {
	var o Override
	if w.Weight != nil {
		weight := storedWeight(*w.Weight)
		o.Weight = &weight
	}
	switch {
	case w.Target != nil:
		o.Threshold = w.Target
	case w.Limit != nil:
		o.Threshold = w.Limit
	}
	o.Unit = w.Unit
	o.Active = w.IsActive
	return o
}

// MarshalJSON writes the stored shape, using target or limit according to
// each goal's direction.
func (o Overrides) MarshalJSON() ([]byte, error) {
	out := make(map[Key]wireGoal, len(o))
	for k, v := range o {
		if !k.Valid() {
			continue
		}
		var w wireGoal
		if v.Weight != nil {
			weight := float64(*v.Weight)
			w.Weight = &weight
		}
		if v.Threshold != nil {
			if DirectionOf(k) == Minimize {
				w.Limit = v.Threshold
			} else {
				w.Target = v.Threshold
			}
		}
		w.Unit = v.Unit
		w.IsActive = v.Active
		out[k] = w
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the stored shape.
func (o *Overrides) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeOverrides(data)
	if err != nil {
		return err
	}
	*o = decoded
	return nil
}

// configJSON is the read shape of one effective goal.
type configJSON struct {
	Key       Key      `json:"key"`
	Weight    int      `json:"weight"`
	Target    *float64 `json:"target,omitempty"`
	Limit     *float64 `json:"limit,omitempty"`
	Direction string   `json:"direction"`
	Unit      string   `json:"unit"`
	IsActive  bool     `json:"isActive"`
}

// MarshalJSON renders the effective configuration.
func (c Config) MarshalJSON() ([]byte, error) {
	threshold := c.Threshold
	out := configJSON{Key: c.Key, Weight: c.Weight, Direction: c.Direction.String(), Unit: c.Unit, IsActive: c.Active}
	if c.Direction == Minimize {
		out.Limit = &threshold
	} else {
		out.Target = &threshold
	}
	return json.Marshal(out)
}

// MarshalJSON renders the table as an object keyed by goal key.
func (t Table) MarshalJSON() ([]byte, error) {
	out := make(map[Key]Config, Count)
	for _, c := range t.configs {
		out[c.Key] = c
	}
	return json.Marshal(out)
}
