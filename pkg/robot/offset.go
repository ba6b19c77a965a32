package robot

// Physical head limits (radians). Commands beyond these are clamped before
// they reach the daemon.
const (
	MaxHeadRoll  = 0.35 // ±20°
	MaxHeadPitch = 0.52 // ±30°
	MaxHeadYaw   = 0.70 // ±40°
)

// MaxAntenna is the antenna travel either side of upright, in radians.
const MaxAntenna = 1.2

// Offset is a head orientation (roll, pitch, yaw in radians).
type Offset struct {
	Roll, Pitch, Yaw float64
}

// Clamp returns a new Offset with values clamped to physical head limits.
func (o Offset) Clamp() Offset {
	return Offset{
		Roll:  clamp(o.Roll, -MaxHeadRoll, MaxHeadRoll),
		Pitch: clamp(o.Pitch, -MaxHeadPitch, MaxHeadPitch),
		Yaw:   clamp(o.Yaw, -MaxHeadYaw, MaxHeadYaw),
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
