package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the feed hides the
	// author and likes columns.
	LayoutCompactWidth = 80

	// LayoutWideWidth is the minimum width to show the date column.
	LayoutWideWidth = 110
)

// Chrome heights.
const (
	headerHeight     = 1
	commandBarHeight = 1
	bannerHeight     = 1
)

const helpModalWidth = 44

// Timing constants.
const (
	// RequestTimeout bounds a single user-triggered request.
	RequestTimeout = 30 * time.Second

	// BannerTTL is how long an error banner stays up.
	BannerTTL = 6 * time.Second

	// LogRefreshInterval is how often the log view rereads the file.
	LogRefreshInterval = 2 * time.Second
)

// LogBufferLimit is the maximum number of log lines the log view keeps.
const LogBufferLimit = 2000
