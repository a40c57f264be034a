package camera

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/pspoerri/camfootprint/internal/config"
	"github.com/pspoerri/camfootprint/internal/geodesy"
)

// FromSpec builds the camera described by a job entry. Geodetic positions
// are resolved against datum.
func FromSpec(spec config.CameraSpec, datum geodesy.Datum) (Model, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	switch spec.Type {
	case config.CameraNadir:
		return model(NadirPinhole(position(spec, datum), spec.FOV, spec.Yaw, spec.Cols, spec.Rows))

	case config.CameraLookAt:
		center := position(spec, datum)
		target := datum.GeodeticToCartesian(vec(*spec.Target))
		up := northUp(center, spec.Yaw)
		return model(LookAt(center, target, up, spec.FOV, spec.Cols, spec.Rows))

	case config.CameraPinhole:
		rot := mat.NewDense(3, 3, append([]float64(nil), spec.Rotation...))
		cu, cv := float64(spec.Cols)/2, float64(spec.Rows)/2
		if spec.Principal != nil {
			cu, cv = spec.Principal[0], spec.Principal[1]
		}
		return model(NewPinhole(position(spec, datum), rot, spec.Focal[0], spec.Focal[1], cu, cv))

	case config.CameraLinescan:
		return model(NadirLinescan(position(spec, datum), vec(*spec.Velocity), spec.FOV, spec.LineTime, spec.Cols))

	case config.CameraOrbital:
		pos, vel, err := OrbitalPose(spec.TLE[0], spec.TLE[1], spec.Time)
		if err != nil {
			return nil, err
		}
		if spec.LineTime > 0 {
			return model(NadirLinescan(pos, vel, spec.FOV, spec.LineTime, spec.Cols))
		}
		return model(NadirPinhole(pos, spec.FOV, spec.Yaw, spec.Cols, spec.Rows))
	}
	return nil, fmt.Errorf("unknown camera type %q", spec.Type)
}

// model drops typed nils so a failed constructor yields a nil Model.
func model[T Model](m T, err error) (Model, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

func position(spec config.CameraSpec, datum geodesy.Datum) r3.Vector {
	if spec.Center != nil {
		return vec(*spec.Center)
	}
	return datum.GeodeticToCartesian(vec(*spec.LonLatAlt))
}

func vec(v [3]float64) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
