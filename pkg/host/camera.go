package host

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxFadeSeconds is the longest a single fade phase may last.
const MaxFadeSeconds = 10

// Fade is a timed full-screen color transition.
type Fade struct {
	Color   color.RGBA `json:"color"`
	FadeIn  float32    `json:"fade_in"`
	Hold    float32    `json:"hold"`
	FadeOut float32    `json:"fade_out"`
}

// Total returns the full duration of the fade in seconds.
func (f Fade) Total() float32 {
	return f.FadeIn + f.Hold + f.FadeOut
}

// Validate checks each phase is within [0, MaxFadeSeconds].
func (f Fade) Validate() error {
	phases := []struct {
		name string
		v    float32
	}{
		{"fade_in", f.FadeIn},
		{"hold", f.Hold},
		{"fade_out", f.FadeOut},
	}
	for _, p := range phases {
		if p.v < 0 || p.v > MaxFadeSeconds {
			return fmt.Errorf("%w: %s %.2fs outside [0, %d]", ErrInvalidInstruction, p.name, p.v, MaxFadeSeconds)
		}
	}
	return nil
}

// Ease describes the interpolation applied when the camera moves.
type Ease struct {
	Type    EaseType `json:"type"`
	Seconds float32  `json:"seconds"`
}

// Position directs the camera to a fixed point.
// When Facing is nil the camera uses RotationX (pitch) and RotationY (yaw).
type Position struct {
	Position               mgl32.Vec3  `json:"position"`
	Ease                   *Ease       `json:"ease,omitempty"`
	Fade                   *Fade       `json:"fade,omitempty"`
	Facing                 *mgl32.Vec3 `json:"facing,omitempty"`
	RotationX              int         `json:"rotation_x"`
	RotationY              int         `json:"rotation_y"`
	RenderPlayerEffects    bool        `json:"render_player_effects"`
	PlayerPositionForAudio bool        `json:"player_position_for_audio"`
}

// Validate checks easing, any stacked fade, and the rotation limits.
func (p Position) Validate() error {
	if p.Ease != nil && p.Ease.Seconds < 0 {
		return fmt.Errorf("%w: negative ease duration %.2fs", ErrInvalidInstruction, p.Ease.Seconds)
	}
	if p.Fade != nil {
		if err := p.Fade.Validate(); err != nil {
			return err
		}
	}
	if p.Facing != nil {
		return nil
	}
	if p.RotationX < -90 || p.RotationX > 90 {
		return fmt.Errorf("%w: rotation_x %d outside [-90, 90]", ErrInvalidInstruction, p.RotationX)
	}
	if p.RotationY < 0 || p.RotationY > 360 {
		return fmt.Errorf("%w: rotation_y %d outside [0, 360]", ErrInvalidInstruction, p.RotationY)
	}
	return nil
}

// EaseType is an interpolation curve understood by the Bedrock client.
type EaseType int

const (
	EaseLinear EaseType = iota
	EaseSpring
	EaseInSine
	EaseOutSine
	EaseInOutSine
	EaseInQuad
	EaseOutQuad
	EaseInOutQuad
	EaseInCubic
	EaseOutCubic
	EaseInOutCubic
	EaseInQuart
	EaseOutQuart
	EaseInOutQuart
	EaseInQuint
	EaseOutQuint
	EaseInOutQuint
	EaseInExpo
	EaseOutExpo
	EaseInOutExpo
	EaseInCirc
	EaseOutCirc
	EaseInOutCirc
	EaseInBounce
	EaseOutBounce
	EaseInOutBounce
	EaseInBack
	EaseOutBack
	EaseInOutBack
	EaseInElastic
	EaseOutElastic
	EaseInOutElastic
)

var easeNames = [...]string{
	"linear", "spring",
	"in_sine", "out_sine", "in_out_sine",
	"in_quad", "out_quad", "in_out_quad",
	"in_cubic", "out_cubic", "in_out_cubic",
	"in_quart", "out_quart", "in_out_quart",
	"in_quint", "out_quint", "in_out_quint",
	"in_expo", "out_expo", "in_out_expo",
	"in_circ", "out_circ", "in_out_circ",
	"in_bounce", "out_bounce", "in_out_bounce",
	"in_back", "out_back", "in_out_back",
	"in_elastic", "out_elastic", "in_out_elastic",
}

// EaseTypeCount is the number of defined ease types.
const EaseTypeCount = len(easeNames)

// EaseTypes returns every ease type in declaration order.
func EaseTypes() []EaseType {
	out := make([]EaseType, EaseTypeCount)
	for i := range out {
		out[i] = EaseType(i)
	}
	return out
}

func (e EaseType) String() string {
	if e < 0 || int(e) >= EaseTypeCount {
		return fmt.Sprintf("EaseType(%d)", int(e))
	}
	return easeNames[e]
}

// MarshalText implements encoding.TextMarshaler.
func (e EaseType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// ParseEaseType looks up an ease type by its Bedrock name.
func ParseEaseType(s string) (EaseType, error) {
	for i, n := range easeNames {
		if n == s {
			return EaseType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ease type %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EaseType) UnmarshalText(b []byte) error {
	v, err := ParseEaseType(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Perspective is a forced camera view mode.
type Perspective int

const (
	FirstPerson Perspective = iota
	ThirdPerson
	ThirdPersonFront
)

func (p Perspective) String() string {
	switch p {
	case FirstPerson:
		return "first_person"
	case ThirdPerson:
		return "third_person"
	case ThirdPersonFront:
		return "third_person_front"
	default:
		return fmt.Sprintf("Perspective(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Perspective) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Perspective) UnmarshalText(b []byte) error {
	for _, v := range []Perspective{FirstPerson, ThirdPerson, ThirdPersonFront} {
		if v.String() == string(b) {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("unknown perspective %q", b)
}

// FormatVec renders a position the way chat feedback shows it.
func FormatVec(v mgl32.Vec3) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X(), v.Y(), v.Z())
}
