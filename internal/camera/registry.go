package camera

import (
	"strings"
	"sync"
)

// SensorFunc builds the image/ground model for a camera. It runs after the
// rest of the Camera has been filled from the label.
type SensorFunc func(c *Camera) (Sensor, error)

// Entry describes one supported instrument. An entry matches a label by
// NAIF instrument code or by spacecraft and instrument name. An empty
// Instrument makes the entry match by code only.
type Entry struct {
	Spacecraft string
	Instrument string
	NaifIKCode int
	Type       Type
	Sensor     SensorFunc
}

// Registry is a set of supported instruments. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewRegistry returns a registry holding the given entries.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{}
	for _, e := range entries {
		r.Register(e)
	}
	return r
}

// Register adds an entry. Entries registered later take precedence.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Entries returns a copy of the registered entries in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup finds the entry for an instrument. An entry matches on its NAIF
// code or on its spacecraft and instrument names; the most recently
// registered match wins, so registered overrides apply to labels that carry
// a NAIF code too.
func (r *Registry) Lookup(spacecraft, instrument string, naifIKCode int) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sc, inst := normalize(spacecraft), normalize(instrument)
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if naifIKCode != 0 && e.NaifIKCode == naifIKCode {
			return e, true
		}
		if inst != "" && e.Instrument != "" && normalize(e.Instrument) == inst && normalize(e.Spacecraft) == sc {
			return e, true
		}
	}
	return Entry{}, false
}

// normalize folds case and drops separators so "LUNAR RECONNAISSANCE
// ORBITER" and "LunarReconnaissanceOrbiter" compare equal.
func normalize(s string) string {
	var sb strings.Builder
	for _, c := range strings.ToUpper(s) {
		switch c {
		case ' ', '_', '\t':
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func equalName(a, b string) bool {
	return normalize(a) == normalize(b)
}

// DefaultRegistry returns a new registry populated with well-known
// planetary instruments.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultEntries...)
}

var defaultEntries = []Entry{
	{Spacecraft: "LUNAR RECONNAISSANCE ORBITER", Instrument: "NACL", NaifIKCode: -85600, Type: LineScan},
	{Spacecraft: "LUNAR RECONNAISSANCE ORBITER", Instrument: "NACR", NaifIKCode: -85610, Type: LineScan},
	{Spacecraft: "LUNAR RECONNAISSANCE ORBITER", Instrument: "WAC-VIS", NaifIKCode: -85621, Type: PushFrame},
	{Spacecraft: "LUNAR RECONNAISSANCE ORBITER", Instrument: "WAC-UV", NaifIKCode: -85626, Type: PushFrame},
	{Spacecraft: "LUNAR RECONNAISSANCE ORBITER", Instrument: "MRFLRO", NaifIKCode: -85700, Type: Radar},
	{Spacecraft: "MARS RECONNAISSANCE ORBITER", Instrument: "CTX", NaifIKCode: -74021, Type: LineScan},
	{Spacecraft: "MARS RECONNAISSANCE ORBITER", Instrument: "HIRISE", NaifIKCode: -74699, Type: LineScan},
	{Spacecraft: "MARS GLOBAL SURVEYOR", Instrument: "MOC-NA", NaifIKCode: -94031, Type: LineScan},
	{Spacecraft: "MARS GLOBAL SURVEYOR", Instrument: "MOC-WA", NaifIKCode: -94032, Type: LineScan},
	{Spacecraft: "MARS ODYSSEY", NaifIKCode: -53031, Type: LineScan},  // THEMIS IR
	{Spacecraft: "MARS ODYSSEY", NaifIKCode: -53032, Type: PushFrame}, // THEMIS VIS
	{Spacecraft: "CASSINI-HUYGENS", Instrument: "ISSNA", NaifIKCode: -82360, Type: Framing},
	{Spacecraft: "CASSINI-HUYGENS", Instrument: "ISSWA", NaifIKCode: -82361, Type: Framing},
	{Spacecraft: "MESSENGER", Instrument: "MDIS-NAC", NaifIKCode: -236820, Type: Framing},
	{Spacecraft: "MESSENGER", Instrument: "MDIS-WAC", NaifIKCode: -236800, Type: Framing},
	{Spacecraft: "VIKING_ORBITER_1", Instrument: "VISUAL_IMAGING_SUBSYSTEM_CAMERA_B", NaifIKCode: -27002, Type: Framing},
	{Spacecraft: "VIKING_ORBITER_2", Instrument: "VISUAL_IMAGING_SUBSYSTEM_CAMERA_A", NaifIKCode: -30001, Type: Framing},
	{Spacecraft: "CLEMENTINE 1", Instrument: "UVVIS", NaifIKCode: -40021, Type: Framing},
	{Spacecraft: "GALILEO ORBITER", Instrument: "SOLID STATE IMAGING SYSTEM", NaifIKCode: -77001, Type: Framing},
	{Spacecraft: "DAWN", Instrument: "FC2", NaifIKCode: -203120, Type: Framing},
	{Spacecraft: "NEW HORIZONS", Instrument: "LORRI", NaifIKCode: -98301, Type: Framing},
	{Spacecraft: "CHANDRAYAAN-1", Instrument: "M3", NaifIKCode: -86520, Type: LineScan},
	{Spacecraft: "KAGUYA", Instrument: "TC1", NaifIKCode: -131351, Type: LineScan},
	{Spacecraft: "KAGUYA", Instrument: "TC2", NaifIKCode: -131371, Type: LineScan},
}
