// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package errutil

import "github.com/samber/oops"

// Code returns the oops code of err, or "" if err is nil or carries none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, ok := oopsErr.Code().(string)
	if !ok {
		return ""
	}
	return code
}

// HasCode reports whether err is an oops error with the given code.
func HasCode(err error, code string) bool {
	return code != "" && Code(err) == code
}
