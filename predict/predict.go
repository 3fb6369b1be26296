// Package predict implements the per-field predictors that turn raw
// decoded values back into absolute field values. A predictor is a pure
// function of the raw value and an Env snapshot; it never touches the
// byte cursor and has no side effects.
package predict

import (
	"errors"
	"fmt"
)

// ErrHomeUnset is returned by HomeCoord when no GPS home frame has been
// seen yet. The caller falls back to a zero home; the condition is
// diagnosable but not fatal.
var ErrHomeUnset = errors.New("gps home coordinate not set")

// Predictor identifies how a field's final value is reconstructed from
// its raw decoded value. The numeric values are the ids used by the log
// header and are fixed by the firmware.
type Predictor byte

const (
	Zero          Predictor = 0  // raw value is final
	Previous      Predictor = 1  // previous frame's value
	StraightLine  Predictor = 2  // 2*prev - prev2
	Average2      Predictor = 3  // (prev + prev2) / 2
	MinThrottle   Predictor = 4  // sysconfig minthrottle
	Motor0        Predictor = 5  // motor[0] of the current frame
	Increment     Predictor = 6  // prev + 1, loop iteration counters
	HomeCoord     Predictor = 7  // GPS home latitude/longitude
	Const1500     Predictor = 8  // mid throttle
	VBatRef       Predictor = 9  // sysconfig reference voltage
	LastMainTime  Predictor = 10 // time of the last committed main frame
	MinMotor      Predictor = 11 // sysconfig motor output floor
)

func (p Predictor) String() string {
	switch p {
	case Zero:
		return "zero"
	case Previous:
		return "previous"
	case StraightLine:
		return "straight-line"
	case Average2:
		return "average-2"
	case MinThrottle:
		return "minthrottle"
	case Motor0:
		return "motor-0"
	case Increment:
		return "increment"
	case HomeCoord:
		return "home-coord"
	case Const1500:
		return "1500"
	case VBatRef:
		return "vbatref"
	case LastMainTime:
		return "last-main-time"
	case MinMotor:
		return "minmotor"
	}
	return fmt.Sprintf("predictor(%d)", byte(p))
}

// Valid reports whether the predictor id is one this decoder implements.
func (p Predictor) Valid() bool {
	return p <= MinMotor
}

// Env is the read-only state a predictor may consult: same-family history
// vectors, the partially assembled current frame, GPS home state and
// sysconfig constants. The frame assembler builds one per field.
type Env struct {
	// Previous and Previous2 are the one and two frames back field
	// vectors for the frame family; nil when that much history does not
	// exist yet, in which case missing values are treated as zero.
	Previous  []int64
	Previous2 []int64

	// Current holds the fields of the frame being assembled that have
	// already been finalized. Only ordinals below Field are valid.
	Current []int64

	// Field is the ordinal of the field being predicted.
	Field int

	// Motor0Index is the ordinal of motor[0] in the current frame, -1
	// when the layout has no motor fields.
	Motor0Index int

	// HomeValue is the home coordinate matching this field; HomeSet is
	// false until an H frame has been decoded.
	HomeValue int64
	HomeSet   bool

	// Sysconfig constants and the running time reference.
	MinThrottle  int64
	MotorLow     int64
	VBatRef      int64
	LastMainTime int64
}

func (e Env) previous() int64 {
	if e.Previous == nil {
		return 0
	}
	return e.Previous[e.Field]
}

func (e Env) previous2() int64 {
	if e.Previous2 == nil {
		return e.previous()
	}
	return e.Previous2[e.Field]
}

// Apply combines a raw decoded value with the environment to produce the
// field's final value. The only recoverable failure is ErrHomeUnset, for
// which the returned value is still usable (home treated as zero).
func (p Predictor) Apply(raw int64, env Env) (int64, error) {
	switch p {
	case Zero:
		return raw, nil

	case Previous:
		return raw + env.previous(), nil

	case StraightLine:
		return raw + 2*env.previous() - env.previous2(), nil

	case Average2:
		return raw + (env.previous()+env.previous2())/2, nil

	case MinThrottle:
		return raw + env.MinThrottle, nil

	case Motor0:
		if env.Motor0Index < 0 || env.Motor0Index >= env.Field {
			return raw, fmt.Errorf("motor[0] predictor without motor[0] field")
		}
		return raw + env.Current[env.Motor0Index], nil

	case Increment:
		return raw + 1 + env.previous(), nil

	case HomeCoord:
		if !env.HomeSet {
			return raw, ErrHomeUnset
		}
		return raw + env.HomeValue, nil

	case Const1500:
		return raw + 1500, nil

	case VBatRef:
		return raw + env.VBatRef, nil

	case LastMainTime:
		return raw + env.LastMainTime, nil

	case MinMotor:
		return raw + env.MotorLow, nil
	}

	return raw, fmt.Errorf("unknown predictor %s", p)
}
