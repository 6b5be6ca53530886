package model

import "fmt"

// Linear temperature models used when no sensor can be read:
// temperature = BaseTemperatureC + usage * coefficient.
const (
	BaseTemperatureC       = 35.0
	GenericHeatCoefficient = 0.3
	LinuxHeatCoefficient   = 0.25
)

// Profile describes one producer variant. The two variants publish to
// distinct topics so consumers can tell them apart.
type Profile struct {
	System          System
	TopicSegment    string  // <namespace>/<segment>/cpu
	HeatCoefficient float64 // used by the usage-based estimate
	Extended        bool    // frequency, core count and per-core usage
}

var (
	GenericProfile = Profile{
		System:          SystemGeneric,
		TopicSegment:    "mac",
		HeatCoefficient: GenericHeatCoefficient,
	}
	LinuxProfile = Profile{
		System:          SystemLinux,
		TopicSegment:    "linux",
		HeatCoefficient: LinuxHeatCoefficient,
		Extended:        true,
	}
)

// ProfileFor returns the profile registered for sys.
func ProfileFor(sys System) Profile {
	if sys == SystemLinux {
		return LinuxProfile
	}
	return GenericProfile
}

// ParseProfile accepts "generic" or "linux" ("mac" is an alias of generic).
func ParseProfile(name string) (Profile, error) {
	switch name {
	case "generic", "mac", "":
		return GenericProfile, nil
	case "linux":
		return LinuxProfile, nil
	}
	return Profile{}, fmt.Errorf("unknown profile %q", name)
}

// Topic returns the topic this profile publishes on under namespace.
func (p Profile) Topic(namespace string) string {
	return namespace + "/" + p.TopicSegment + "/cpu"
}
