package capsule

import (
	"math"

	"capsule-service/src/models"
)

// accelFlippedZ is the accelerometer z-axis signature of a device lying
// underside-up. Gravity pulls at roughly -9.8 m/s² on z when face-down;
// anything above this cutoff is a tilt or a tumble, not a flip.
const accelFlippedZ = -5.0

// Classification is the classifier's verdict for a single sample.
type Classification struct {
	IsFlipped bool
	// Stability is a 0..1 measure of how little the orientation moved since
	// the previous sample. Quality feedback only; it does not gate the flip
	// predicate.
	Stability float64
}

// Classify decides whether a sample shows the device flipped upside-down and
// scores its stability against the previous sample. Pure: it never mutates its
// arguments and identical inputs always produce identical outputs.
//
// Beta alone is necessary but not sufficient: a device tilted sideways can
// exceed the beta threshold transiently, so the gamma and accelerometer checks
// suppress false positives from brief tumbling motion.
func Classify(sample, prev *models.OrientationSample, cfg models.ChallengeConfig) Classification {
	return Classification{
		IsFlipped: isFlipped(sample, cfg),
		Stability: stability(sample, prev, cfg),
	}
}

func isFlipped(sample *models.OrientationSample, cfg models.ChallengeConfig) bool {
	// Missing angle data never classifies as flipped.
	if sample == nil || sample.Beta == nil || sample.Gamma == nil {
		return false
	}

	if cfg.RequireAbsoluteSensors && (sample.Absolute == nil || !*sample.Absolute) {
		return false
	}

	betaFlipped := math.Abs(*sample.Beta) > cfg.BetaThresholdDeg
	gammaStable := math.Abs(*sample.Gamma) < cfg.GammaStabilityDeg

	accelFlipped := true
	if sample.Accel != nil {
		accelFlipped = sample.Accel.Z < accelFlippedZ
	}

	return betaFlipped && gammaStable && accelFlipped
}

func stability(sample, prev *models.OrientationSample, cfg models.ChallengeConfig) float64 {
	// First sample of a session has nothing to drift from.
	if sample == nil || prev == nil {
		return 1.0
	}
	if cfg.StabilityThresholdDeg <= 0 {
		return 1.0
	}

	alphaDiff := circularDiff(angleOrZero(sample.Alpha), angleOrZero(prev.Alpha))
	betaDiff := math.Abs(angleOrZero(sample.Beta) - angleOrZero(prev.Beta))
	gammaDiff := math.Abs(angleOrZero(sample.Gamma) - angleOrZero(prev.Gamma))

	movement := alphaDiff*0.2 + betaDiff*0.5 + gammaDiff*0.3
	return math.Max(0, 1-movement/cfg.StabilityThresholdDeg)
}

// circularDiff returns the wraparound distance between two alpha (yaw) angles.
func circularDiff(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		return 360 - d
	}
	return d
}

func angleOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// CheckCapabilities reports which sensor features a sample lacks. A missing
// feature does not block classification; it is surfaced so clients can warn
// the user about degraded sensor stacks before they burn an attempt.
func CheckCapabilities(sample *models.OrientationSample) models.CapabilityReport {
	missing := []string{}
	if sample == nil || sample.Alpha == nil {
		missing = append(missing, "alpha")
	}
	if sample == nil || sample.Beta == nil {
		missing = append(missing, "beta")
	}
	if sample == nil || sample.Gamma == nil {
		missing = append(missing, "gamma")
	}
	if sample == nil || sample.Absolute == nil {
		missing = append(missing, "absolute")
	}
	if sample == nil || sample.Accel == nil {
		missing = append(missing, "accelerometer")
	}

	return models.CapabilityReport{
		HasRequiredSensors: len(missing) == 0,
		MissingFeatures:    missing,
	}
}
