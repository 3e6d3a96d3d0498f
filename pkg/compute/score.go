package compute

import "github.com/qcsim/qcsim/pkg/types"

// Channels holds the per-channel maxima used to normalise raw readings.
type Channels struct {
	MaxVibration float64
	MaxAcoustic  float64
}

// ChannelMax scans parts and returns the maximum of each sensor channel.
// An empty slice yields zero maxima.
func ChannelMax(parts []types.Part) Channels {
	var ch Channels
	for i, p := range parts {
		if i == 0 || p.VibrationRMS > ch.MaxVibration {
			ch.MaxVibration = p.VibrationRMS
		}
		if i == 0 || p.AcousticDB > ch.MaxAcoustic {
			ch.MaxAcoustic = p.AcousticDB
		}
	}
	return ch
}

// Confidence returns the weighted, batch-normalised defect confidence of p:
//
//	vibration_weight * vib/max_vib + acoustic_weight * ac/max_ac
//
// A channel whose batch maximum is zero contributes nothing.
func Confidence(p types.Part, ch Channels, policy types.Policy) float64 {
	return policy.VibrationWeight*normalize(p.VibrationRMS, ch.MaxVibration) +
		policy.AcousticWeight*normalize(p.AcousticDB, ch.MaxAcoustic)
}

// normalize divides v by max, anchored at zero. A zero max yields 0.
func normalize(v, max float64) float64 {
	if max == 0 {
		return 0
	}
	return v / max
}
