package config

import (
	"net"
	"strings"
)

// Defaults applied by Normalize.
const (
	DefaultPort            = "49700"
	DefaultPolicy          = "sequential"
	DefaultSettleMs        = 100
	DefaultMaxPollAttempts = 600
	DefaultConnectTimeout  = 3000
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 500
	DefaultRecord          = 1
	DefaultMirrorProtocol  = "modbus"
	DefaultMirrorInterval  = 1000
	DefaultMirrorTimeout   = 2000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	g := &cfg.Gantry

	g.Policy = strings.ToLower(strings.TrimSpace(g.Policy))
	if g.Policy == "" {
		g.Policy = DefaultPolicy
	}
	if g.SettleMs == 0 {
		g.SettleMs = DefaultSettleMs
	}
	if g.MaxPollAttempts == 0 {
		g.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if g.Connect.TimeoutMs == 0 {
		g.Connect.TimeoutMs = DefaultConnectTimeout
	}
	if g.Connect.Attempts == 0 {
		g.Connect.Attempts = DefaultConnectAttempts
	}
	if g.Connect.BackoffMs == 0 {
		g.Connect.BackoffMs = DefaultConnectBackoff
	}

	for gi := range g.Groups {
		for ai := range g.Groups[gi].Axes {
			a := &g.Groups[gi].Axes[ai]

			a.Endpoint = withDefaultPort(strings.TrimSpace(a.Endpoint))
			if a.Record == 0 {
				a.Record = DefaultRecord
			}
			if a.ReferenceMm > 0 && a.ReferenceRecord == 0 {
				a.ReferenceRecord = DefaultRecord
			}
		}
	}

	if m := cfg.StatusMirror; m != nil {
		m.Protocol = strings.ToLower(strings.TrimSpace(m.Protocol))
		if m.Protocol == "" {
			m.Protocol = DefaultMirrorProtocol
		}
		if m.IntervalMs == 0 {
			m.IntervalMs = DefaultMirrorInterval
		}
		if m.TimeoutMs == 0 {
			m.TimeoutMs = DefaultMirrorTimeout
		}
	}
}

func withDefaultPort(endpoint string) string {
	if endpoint == "" {
		return endpoint
	}
	if _, _, err := net.SplitHostPort(endpoint); err == nil {
		return endpoint
	}
	return net.JoinHostPort(strings.Trim(endpoint, "[]"), DefaultPort)
}
