// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package auth

// Outcome labels recorded against the auth metrics.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFault    = "fault"
)

// Metrics receives counters from the Engine. The observability package
// provides a Prometheus-backed implementation; a nil Metrics disables
// recording.
type Metrics interface {
	RecordSignup(outcome string)
	RecordLogin(outcome string)
	RecordSessionCheck(outcome string)
}

// nopMetrics is used when no Metrics is attached.
type nopMetrics struct{}

func (nopMetrics) RecordSignup(string)       {}
func (nopMetrics) RecordLogin(string)        {}
func (nopMetrics) RecordSessionCheck(string) {}
