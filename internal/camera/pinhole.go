// Package camera provides camera models that turn image pixels into rays in
// the body-fixed frame of a datum.
package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Model is a camera that casts one ray per pixel.
type Model interface {
	CameraCenter(pix r2.Point) r3.Vector
	PixelToVector(pix r2.Point) r3.Vector
}

// ErrDegenerateFrame is returned when a camera orientation cannot be built,
// e.g. an up vector parallel to the viewing direction.
var ErrDegenerateFrame = errors.New("degenerate camera frame")

// Pinhole is a frame camera with no lens distortion. Rotation maps camera
// coordinates (x right, y down, z forward) to the body-fixed frame.
type Pinhole struct {
	Center   r3.Vector
	Rotation *mat.Dense
	Fu, Fv   float64 // focal lengths, pixels
	Cu, Cv   float64 // principal point, pixels
}

// NewPinhole validates the intrinsics and the rotation.
func NewPinhole(center r3.Vector, rotation *mat.Dense, fu, fv, cu, cv float64) (*Pinhole, error) {
	if r, c := rotation.Dims(); r != 3 || c != 3 {
		return nil, fmt.Errorf("rotation must be 3x3, got %dx%d", r, c)
	}
	if !(fu > 0) || !(fv > 0) {
		return nil, fmt.Errorf("focal lengths must be positive (%g, %g)", fu, fv)
	}
	if d := mat.Det(rotation); math.Abs(d-1) > 1e-6 {
		return nil, fmt.Errorf("%w: rotation determinant %g, want 1", ErrDegenerateFrame, d)
	}
	return &Pinhole{Center: center, Rotation: rotation, Fu: fu, Fv: fv, Cu: cu, Cv: cv}, nil
}

// LookAt builds a pinhole at center looking at target. up fixes the roll;
// fovDeg is the horizontal field of view.
func LookAt(center, target, up r3.Vector, fovDeg float64, cols, rows int32) (*Pinhole, error) {
	rot, err := lookRotation(target.Sub(center), up)
	if err != nil {
		return nil, err
	}
	fu, cu, cv, err := intrinsics(fovDeg, cols, rows)
	if err != nil {
		return nil, err
	}
	return NewPinhole(center, rot, fu, fu, cu, cv)
}

// NadirPinhole builds a pinhole looking at the centre of the body. The top
// of the image faces north rotated clockwise by yawDeg.
func NadirPinhole(center r3.Vector, fovDeg, yawDeg float64, cols, rows int32) (*Pinhole, error) {
	return LookAt(center, r3.Vector{}, northUp(center, yawDeg), fovDeg, cols, rows)
}

func (p *Pinhole) CameraCenter(r2.Point) r3.Vector { return p.Center }

func (p *Pinhole) PixelToVector(pix r2.Point) r3.Vector {
	return rotate(p.Rotation, r3.Vector{
		X: (pix.X - p.Cu) / p.Fu,
		Y: (pix.Y - p.Cv) / p.Fv,
		Z: 1,
	}).Normalize()
}

// lookRotation returns the camera-to-world rotation for a camera looking
// along forward with up toward the top of the image.
func lookRotation(forward, up r3.Vector) (*mat.Dense, error) {
	if forward.Norm2() == 0 {
		return nil, fmt.Errorf("%w: zero viewing direction", ErrDegenerateFrame)
	}
	z := forward.Normalize()
	x := z.Cross(up)
	if x.Norm() < 1e-12*up.Norm() || up.Norm2() == 0 {
		return nil, fmt.Errorf("%w: up vector parallel to viewing direction", ErrDegenerateFrame)
	}
	x = x.Normalize()
	y := z.Cross(x)

	// Columns are the camera axes in world coordinates.
	return mat.NewDense(3, 3, []float64{
		x.X, y.X, z.X,
		x.Y, y.Y, z.Y,
		x.Z, y.Z, z.Z,
	}), nil
}

// northUp returns the local north direction at p rotated clockwise about the
// nadir by yawDeg. On the polar axis the prime meridian stands in for north.
func northUp(p r3.Vector, yawDeg float64) r3.Vector {
	down := p.Mul(-1).Normalize()
	pole := r3.Vector{Z: 1}
	north := pole.Sub(down.Mul(pole.Dot(down)))
	if north.Norm() < 1e-9 {
		north = r3.Vector{X: 1}
	}
	north = north.Normalize()
	return rodrigues(north, down, yawDeg*math.Pi/180)
}

// rodrigues rotates v about the unit axis k by angle radians.
func rodrigues(v, k r3.Vector, angle float64) r3.Vector {
	sin, cos := math.Sincos(angle)
	return v.Mul(cos).Add(k.Cross(v).Mul(sin)).Add(k.Mul(k.Dot(v) * (1 - cos)))
}

func intrinsics(fovDeg float64, cols, rows int32) (f, cu, cv float64, err error) {
	if !(fovDeg > 0 && fovDeg < 180) {
		return 0, 0, 0, fmt.Errorf("field of view %g must be in (0, 180)", fovDeg)
	}
	if cols <= 0 || rows <= 0 {
		return 0, 0, 0, fmt.Errorf("image size %dx%d must be positive", cols, rows)
	}
	cu, cv = float64(cols)/2, float64(rows)/2
	f = cu / math.Tan(fovDeg*math.Pi/360)
	return f, cu, cv, nil
}

func rotate(m mat.Matrix, v r3.Vector) r3.Vector {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}
