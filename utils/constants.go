package utils

import (
	"time"
)

// Scheduler constants
const (
	// DueLookahead is how far ahead of the wall clock a scheduler pass
	// considers a notification due (trades polling frequency for timeliness)
	DueLookahead = 5 * time.Minute

	// DispatchConcurrency is the default number of concurrent channel dispatches per pass
	DispatchConcurrency = 8

	// DueBatchLimit bounds the number of notifications claimed in a single pass
	DueBatchLimit = 500

	// SnoozeInterval is how far out a snoozed medication reminder is rescheduled
	SnoozeInterval = 15 * time.Minute
)

// Voice prompt constants
const (
	// GatherTimeoutSeconds is how long the voice provider waits for a keypress
	GatherTimeoutSeconds = 5

	// MinSpokenSeconds and MaxSpokenSeconds bound a valid composed message duration
	MinSpokenSeconds = 5
	MaxSpokenSeconds = 60

	// WordsPerSecond is the assumed speech rate for duration estimates
	WordsPerSecond = 2.5

	// PauseBufferSeconds is added to every duration estimate for natural pauses
	PauseBufferSeconds = 3
)

// Feature gate constants
const (
	// PlanCacheTTL is how long a resolved subscription plan stays in the cache
	PlanCacheTTL = 5 * time.Minute
)

// CORS constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
