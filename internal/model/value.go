// Package model defines the entities that flow through an audit run: raw
// report records, joined fact rows, derived metrics, scores, labels and
// recommendations.
package model

import (
	"bytes"
	"encoding/json"
	"math"
)

// Value is a numeric measurement that may be missing. A missing value is
// never equal to zero and arithmetic on a missing operand yields missing.
type Value struct {
	v  float64
	ok bool
}

// Of returns a present value. NaN and infinities are treated as missing.
func Of(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// Missing returns a missing value.
func Missing() Value { return Value{} }

// Float returns the value and whether it is present.
func (x Value) Float() (float64, bool) { return x.v, x.ok }

// IsMissing reports whether the value is missing.
func (x Value) IsMissing() bool { return !x.ok }

// Or returns the value, or d when missing. Only optional inputs may be
// defaulted this way.
func (x Value) Or(d float64) float64 {
	if !x.ok {
		return d
	}
	return x.v
}

// Add returns x+y.
func (x Value) Add(y Value) Value {
	if !x.ok || !y.ok {
		return Missing()
	}
	return Of(x.v + y.v)
}

// Sub returns x-y.
func (x Value) Sub(y Value) Value {
	if !x.ok || !y.ok {
		return Missing()
	}
	return Of(x.v - y.v)
}

// Mul returns x*y.
func (x Value) Mul(y Value) Value {
	if !x.ok || !y.ok {
		return Missing()
	}
	return Of(x.v * y.v)
}

// Div returns x/y, or missing when y is missing or zero.
func (x Value) Div(y Value) Value {
	if !x.ok || !y.ok || y.v == 0 {
		return Missing()
	}
	return Of(x.v / y.v)
}

// Scale multiplies by a constant.
func (x Value) Scale(k float64) Value {
	if !x.ok {
		return Missing()
	}
	return Of(x.v * k)
}

// Positive reports whether the value is present and greater than zero.
func (x Value) Positive() bool { return x.ok && x.v > 0 }

// MarshalJSON encodes missing as null.
func (x Value) MarshalJSON() ([]byte, error) {
	if !x.ok {
		return []byte("null"), nil
	}
	return json.Marshal(x.v)
}

// UnmarshalJSON decodes null as missing.
func (x *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*x = Missing()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*x = Of(f)
	return nil
}
