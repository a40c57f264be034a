package camera

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Linescan is a pushbroom camera: a single sensor line swept by the motion
// of the platform. Row r is exposed LineTime·r seconds after row 0, from
// Position + Velocity·t; the column maps to an angle across the line.
type Linescan struct {
	Position r3.Vector // at row 0, meters
	Velocity r3.Vector // meters per second
	LineTime float64   // seconds per row
	Rotation *mat.Dense
	Fu, Cu   float64
}

// NadirLinescan builds a pushbroom looking at the centre of the body with
// the sensor line across the direction of flight.
func NadirLinescan(position, velocity r3.Vector, fovDeg, lineTime float64, cols int32) (*Linescan, error) {
	if !(lineTime > 0) {
		return nil, fmt.Errorf("line time %g must be positive", lineTime)
	}
	if velocity.Norm2() == 0 {
		return nil, fmt.Errorf("%w: zero velocity", ErrDegenerateFrame)
	}
	// Rows advance along track, so the image "up" is against the motion.
	rot, err := lookRotation(position.Mul(-1), velocity.Mul(-1))
	if err != nil {
		return nil, err
	}
	fu, cu, _, err := intrinsics(fovDeg, cols, 1)
	if err != nil {
		return nil, err
	}
	return &Linescan{
		Position: position,
		Velocity: velocity,
		LineTime: lineTime,
		Rotation: rot,
		Fu:       fu,
		Cu:       cu,
	}, nil
}

func (l *Linescan) CameraCenter(pix r2.Point) r3.Vector {
	return l.Position.Add(l.Velocity.Mul(pix.Y * l.LineTime))
}

func (l *Linescan) PixelToVector(pix r2.Point) r3.Vector {
	return rotate(l.Rotation, r3.Vector{X: (pix.X - l.Cu) / l.Fu, Z: 1}).Normalize()
}
