package utils

import (
	"github.com/fatih/color"
)

// Pretty printer palette for analysis output.
var (
	PosColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
	}
	RuleColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiYellow).SprintFunc())(is...)
	}
	NameColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiGreen).SprintFunc())(is...)
	}
	FailColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiRed, color.Bold).SprintFunc())(is...)
	}
	FaintColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiWhite, color.Faint).SprintFunc())(is...)
	}
)
