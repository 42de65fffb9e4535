package ham

import (
	"time"
)

// AdmissionVerdict is the outcome of a capacity admission check.
type AdmissionVerdict int

const (
	// AdmitOK means the write may proceed at full speed.
	AdmitOK AdmissionVerdict = iota

	// AdmitDegraded means the write may proceed but the volume is filling;
	// Admission.Lag carries an advisory backpressure delay.
	AdmitDegraded

	// AdmitFull means the simulated volume is full and the write must be
	// refused before any partial state is produced.
	AdmitFull
)

func (v AdmissionVerdict) String() string {
	switch v {
	case AdmitOK:
		return "ok"
	case AdmitDegraded:
		return "degraded"
	case AdmitFull:
		return "full"
	default:
		return "unknown"
	}
}

// Admission is the graduated backpressure signal returned by the guard.
// Lag is advisory: a caller may throttle by it or ignore it, but it is never
// used to block inside the store.
type Admission struct {
	Verdict AdmissionVerdict
	Lag     time.Duration
}

// CapacityConfig describes the simulated storage volume.
type CapacityConfig struct {
	// CapacityBytes is the simulated volume size. 0 means unbounded: every
	// admission succeeds and headroom is always full.
	CapacityBytes int64

	// WarnPct and CritPct are the degraded thresholds as fractions of
	// capacity. Defaults: 0.80 and 0.95.
	WarnPct float64
	CritPct float64

	// BaseDelay is the unit of advisory lag. Default: 100ms.
	BaseDelay time.Duration

	// WarnFactor and CritFactor scale BaseDelay at each threshold.
	// Defaults: 1.0.
	WarnFactor float64
	CritFactor float64
}

// DefaultCapacityConfig mirrors the historical simulation defaults.
var DefaultCapacityConfig = CapacityConfig{
	WarnPct:    0.80,
	CritPct:    0.95,
	BaseDelay:  100 * time.Millisecond,
	WarnFactor: 1.0,
	CritFactor: 1.0,
}

func (c CapacityConfig) withDefaults() CapacityConfig {
	d := DefaultCapacityConfig
	if c.WarnPct == 0 {
		c.WarnPct = d.WarnPct
	}
	if c.CritPct == 0 {
		c.CritPct = d.CritPct
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.WarnFactor == 0 {
		c.WarnFactor = d.WarnFactor
	}
	if c.CritFactor == 0 {
		c.CritFactor = d.CritFactor
	}
	return c
}

// CapacityGuard decides whether a write may proceed against the simulated
// volume. It is stateless per call: usage is re-read on every admission from
// the size of the persisted mirror.
type CapacityGuard struct {
	cfg   CapacityConfig
	usage func() int64
}

// NewCapacityGuard builds a guard over a usage probe. Zero config fields are
// filled from DefaultCapacityConfig.
func NewCapacityGuard(cfg CapacityConfig, usage func() int64) *CapacityGuard {
	return &CapacityGuard{cfg: cfg.withDefaults(), usage: usage}
}

// Admit runs one admission check.
func (g *CapacityGuard) Admit() Admission {
	if g == nil || g.cfg.CapacityBytes <= 0 {
		return Admission{Verdict: AdmitOK}
	}
	used := g.usage()
	capacity := float64(g.cfg.CapacityBytes)

	switch {
	case float64(used) >= capacity:
		return Admission{Verdict: AdmitFull}
	case float64(used) >= capacity*g.cfg.CritPct:
		return Admission{
			Verdict: AdmitDegraded,
			Lag:     time.Duration(float64(g.cfg.BaseDelay) * g.cfg.CritFactor),
		}
	case float64(used) >= capacity*g.cfg.WarnPct:
		return Admission{
			Verdict: AdmitDegraded,
			Lag:     time.Duration(float64(g.cfg.BaseDelay) * g.cfg.WarnFactor),
		}
	default:
		return Admission{Verdict: AdmitOK}
	}
}

// Usage returns the current simulated usage in bytes.
func (g *CapacityGuard) Usage() int64 {
	if g == nil || g.usage == nil {
		return 0
	}
	return g.usage()
}

// Headroom returns the free fraction of the volume in [0,1]. An unbounded
// guard always reports full headroom.
func (g *CapacityGuard) Headroom() float64 {
	if g == nil || g.cfg.CapacityBytes <= 0 {
		return 1.0
	}
	free := 1.0 - float64(g.usage())/float64(g.cfg.CapacityBytes)
	if free < 0 {
		return 0
	}
	return free
}
