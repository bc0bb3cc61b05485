package voiceinput

// Raw amplitudes reported by recorders peak around AmplitudeMaxValue and are
// scaled down to AmplitudeMaxLevel steps for UI meters.
const (
	AmplitudeMaxValue = 16385
	AmplitudeMaxLevel = 8
)

// Level maps a raw amplitude sample to a meter level in [0, AmplitudeMaxLevel].
func Level(raw int) int {
	level := raw / (AmplitudeMaxValue / AmplitudeMaxLevel)
	if level < 0 {
		return 0
	}
	if level > AmplitudeMaxLevel {
		return AmplitudeMaxLevel
	}
	return level
}
