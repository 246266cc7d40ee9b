package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: results, errors with hints
//	1 (-v)      - + startup banner, radar link events, round transitions
//	2 (-vv)     - + tracer chunk counts, timing, config applied
//	3 (-vvv)    - + per-packet flood fan-out, internal flow
//	4 (-vvvv)   - + full map/packet dumps

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // route install results, command output
	OutputErrors                           // errors with hints and resolution steps
	OutputUserStatus                       // final success/failure status

	// Level 1 (-v) - Informational
	OutputStartup     // startup banner, config summary
	OutputLinkEvents  // radar link up/down/rtt-change
	OutputRoundEvents // qspn round opened/closed per level

	// Level 2 (-vv) - Detailed
	OutputTiming      // operation timing (e.g. "round closed in 42ms")
	OutputConfig      // config values loaded/applied
	OutputTracerStats // tracer chunk counts per packet
	OutputHistory     // history store writes

	// Level 3 (-vvv) - Debug
	OutputFloodFanout  // per-neighbor flood send attempts
	OutputInternalFlow // internal operation flow (function entry/exit)
	OutputTransport    // raw socket send/recv sizes

	// Level 4 (-vvvv) - Full dump
	OutputPacketDump // full decoded packet contents
	OutputMapDump    // full map contents
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputStartup:     VerbosityInfo,
	OutputLinkEvents:  VerbosityInfo,
	OutputRoundEvents: VerbosityInfo,

	OutputTiming:      VerbosityDebug,
	OutputConfig:      VerbosityDebug,
	OutputTracerStats: VerbosityDebug,
	OutputHistory:     VerbosityDebug,

	OutputFloodFanout:  VerbosityTrace,
	OutputInternalFlow: VerbosityTrace,
	OutputTransport:    VerbosityTrace,

	OutputPacketDump: VerbosityAll,
	OutputMapDump:    VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories
var categoryNames = map[OutputCategory]string{
	OutputResults:      "results",
	OutputErrors:       "errors",
	OutputUserStatus:   "status",
	OutputStartup:      "startup",
	OutputLinkEvents:   "link-events",
	OutputRoundEvents:  "round-events",
	OutputTiming:       "timing",
	OutputConfig:       "config",
	OutputTracerStats:  "tracer-stats",
	OutputHistory:      "history",
	OutputFloodFanout:  "flood-fanout",
	OutputInternalFlow: "internal-flow",
	OutputTransport:    "transport",
	OutputPacketDump:   "packet-dump",
	OutputMapDump:      "map-dump",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories returns all output categories enabled at the given verbosity
func EnabledCategories(verbosity int) []OutputCategory {
	var enabled []OutputCategory
	for cat, minLevel := range categoryLevels {
		if verbosity >= minLevel {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "results, errors, startup, link/round events"
	case VerbosityDebug:
		return "above + timing, config, tracer stats, history"
	case VerbosityTrace:
		return "above + flood fanout, internal flow, transport"
	case VerbosityAll:
		return "above + full packet and map dumps"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}

// ShouldShowLinkEvents returns true if radar link events should be displayed
func ShouldShowLinkEvents(verbosity int) bool {
	return ShouldOutput(verbosity, OutputLinkEvents)
}

// ShouldShowRoundEvents returns true if qspn round transitions should be displayed
func ShouldShowRoundEvents(verbosity int) bool {
	return ShouldOutput(verbosity, OutputRoundEvents)
}

// ShouldShowPacketDump returns true if full packet contents should be dumped
func ShouldShowPacketDump(verbosity int) bool {
	return ShouldOutput(verbosity, OutputPacketDump)
}

// Timing helpers

// SlowThresholdMS is the threshold in milliseconds above which timing is always shown
const SlowThresholdMS = 100

// ShouldShowTiming returns true if timing info should be displayed.
// Shows if: verbosity >= 2 (-vv) OR operation exceeded slow threshold.
func ShouldShowTiming(verbosity int, durationMS int64) bool {
	if durationMS >= SlowThresholdMS {
		return true
	}
	return ShouldOutput(verbosity, OutputTiming)
}

// ShouldShowTimingAlways returns true if timing should always be shown (slow operation)
func ShouldShowTimingAlways(durationMS int64) bool {
	return durationMS >= SlowThresholdMS
}
