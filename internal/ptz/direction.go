// Package ptz maps symbolic pan/tilt intents onto motion vectors understood by the camera.
package ptz

import (
	"fmt"
	"sort"
)

// Direction is one of the eight supported movement directions.
type Direction string

// Supported directions.
const (
	Up        Direction = "up"
	Down      Direction = "down"
	Left      Direction = "left"
	Right     Direction = "right"
	UpLeft    Direction = "up-left"
	UpRight   Direction = "up-right"
	DownLeft  Direction = "down-left"
	DownRight Direction = "down-right"
)

// Speed bounds accepted by the camera's continuous-move endpoint.
const (
	DefaultSpeed = 50
	MinSpeed     = 1
	MaxSpeed     = 100
)

// signs holds the (pan, tilt) sign pair for a direction.
type signs struct {
	pan, tilt int
}

var directionSigns = map[Direction]signs{
	Up:        {0, 1},
	Down:      {0, -1},
	Left:      {-1, 0},
	Right:     {1, 0},
	UpLeft:    {-1, 1},
	UpRight:   {1, 1},
	DownLeft:  {-1, -1},
	DownRight: {1, -1},
}

// MotionVector is a continuous-move velocity. Pan and tilt are in [-100, 100].
type MotionVector struct {
	Pan  int `json:"pan"`
	Tilt int `json:"tilt"`
	Zoom int `json:"zoom"`
}

// Halt is the zero vector sent to stop all motion.
var Halt = MotionVector{}

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if _, ok := directionSigns[d]; !ok {
		return "", NewValidationError("direction", fmt.Sprintf("invalid direction %q", s))
	}
	return d, nil
}

// Directions returns all supported directions in a stable order.
func Directions() []Direction {
	out := make([]Direction, 0, len(directionSigns))
	for d := range directionSigns {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Translate turns a direction and speed into a motion vector.
// A nil speed means DefaultSpeed.
func Translate(direction string, speed *int) (MotionVector, error) {
	d, err := ParseDirection(direction)
	if err != nil {
		return MotionVector{}, err
	}

	s := DefaultSpeed
	if speed != nil {
		s = *speed
	}
	if s < MinSpeed || s > MaxSpeed {
		return MotionVector{}, NewValidationError("speed",
			fmt.Sprintf("speed %d out of range [%d,%d]", s, MinSpeed, MaxSpeed))
	}

	sg := directionSigns[d]
	return MotionVector{Pan: sg.pan * s, Tilt: sg.tilt * s}, nil
}
