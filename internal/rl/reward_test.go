package rl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditRewardFreshEditUsesHighReward(t *testing.T) {
	assert.InDelta(t, 0.9, EditReward("main.py", true, 1000, "", 0), 1e-9)
}

func TestEditRewardRetryOnSameFileWithin30sUsesLowReward(t *testing.T) {
	assert.InDelta(t, 0.4, EditReward("src/lib.rs", true, 1020, "src/lib.rs", 1000), 1e-9)
}

func TestEditRewardSameFileRetryTakesPrecedenceOverFiveSecondWindow(t *testing.T) {
	// within both the 30s same-file window and the 5s any-file window: the
	// more specific same-file rule wins.
	assert.InDelta(t, 0.4, EditReward("src/lib.rs", true, 1003, "src/lib.rs", 1000), 1e-9)
}

func TestEditRewardDifferentFileWithinFiveSecondsUsesMidReward(t *testing.T) {
	assert.InDelta(t, 0.5, EditReward("other.txt", true, 1003, "src/lib.rs", 1000), 1e-9)
}

func TestEditRewardBonusExtensionAddsPointOneCapped(t *testing.T) {
	assert.InDelta(t, 1.0, EditReward("main.go", true, 1000, "", 0), 1e-9)
}

func TestEditRewardFailurePathIsFlat(t *testing.T) {
	assert.InDelta(t, -0.5, EditReward("main.go", false, 1000, "main.go", 999), 1e-9)
}

func TestCommandRewardClassifiesLeadingToken(t *testing.T) {
	cases := []struct {
		cmd  string
		want float64
	}{
		{"ls -la", 0.3},
		{"git status", 0.6},
		{"cat file.txt | grep foo", 0.85},
		{"npm install && npm test", 0.8},
		{"echo $(date)", 0.9},
		{"unknown-tool --flag", 0.6},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, CommandReward(c.cmd, true), 1e-9, c.cmd)
	}
}

func TestCommandRewardFailureIsFlat(t *testing.T) {
	assert.InDelta(t, -0.3, CommandReward("git push", false), 1e-9)
}
