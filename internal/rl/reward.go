package rl

import (
	"path/filepath"
	"strings"
)

// bonusExtensions get a further reward nudge on successful edits.
var bonusExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".rs":  true,
	".go":  true,
	".java": true,
}

// readOnlyBuiltins never mutate state and earn the lowest non-failure reward.
var readOnlyBuiltins = map[string]bool{
	"ls": true, "cd": true, "pwd": true, "echo": true, "cat": true,
	"head": true, "tail": true, "wc": true, "date": true, "whoami": true,
}

// devTools are the everyday build/vcs/package-manager commands.
var devTools = map[string]bool{
	"git": true, "npm": true, "npx": true, "node": true, "python": true,
	"cargo": true, "make": true,
}

// EditReward computes the reward-differentiation policy's post-edit value.
//
// file is the path just edited, success reports whether the edit succeeded,
// and prevFile/prevEditAt describe the previous edit observed by the
// caller (zero prevEditAt means there was no previous edit this session).
func EditReward(file string, success bool, now int64, prevFile string, prevEditAt int64) float64 {
	if !success {
		return -0.5
	}

	// Checked in order of specificity: a retry on the same file within 30s
	// dominates the broader within-5s-on-any-file window, which in turn
	// dominates the otherwise-fresh-edit case.
	var reward float64
	switch {
	case prevEditAt != 0 && prevFile == file && now-prevEditAt <= 30:
		reward = 0.4
	case prevEditAt != 0 && now-prevEditAt <= 5:
		reward = 0.5
	default:
		reward = 0.9
	}

	if bonusExtensions[strings.ToLower(filepath.Ext(file))] {
		reward += 0.1
		if reward > 1.0 {
			reward = 1.0
		}
	}
	return reward
}

// CommandReward computes the reward-differentiation policy's post-command
// value by classifying the leading token (and a few structural cues) of cmd.
func CommandReward(cmd string, success bool) float64 {
	if !success {
		return -0.3
	}

	trimmed := strings.TrimSpace(cmd)
	if trimmed == "" {
		return 0.6
	}

	switch {
	case strings.Contains(trimmed, "$("):
		return 0.9
	case strings.Contains(trimmed, "|"):
		return 0.85
	case strings.Contains(trimmed, "&&"):
		return 0.8
	}

	leading := trimmed
	if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
		leading = trimmed[:i]
	}
	leading = filepath.Base(leading)

	switch {
	case readOnlyBuiltins[leading]:
		return 0.3
	case devTools[leading]:
		return 0.6
	default:
		return 0.6
	}
}
