package ffmpeg

import (
	"fmt"
	"strings"
)

// OptionType is an input-side ffmpeg behavior flag.
type OptionType string

const (
	OptionGeneratePTS        OptionType = "genpts"
	OptionIgnoreErrors       OptionType = "ignore_err"
	OptionWallclockTimestamp OptionType = "wallclock_ts"
	OptionLowLatency         OptionType = "low_latency"
	OptionNoBuffer           OptionType = "nobuffer"
)

// ExclusiveGroup represents a group of mutually exclusive options
type ExclusiveGroup string

const GroupTimestamps ExclusiveGroup = "timestamps"

// Option describes one flag.
type Option struct {
	Key            OptionType      `json:"key"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	ExclusiveGroup *ExclusiveGroup `json:"exclusive_group,omitempty"`
}

func group(g ExclusiveGroup) *ExclusiveGroup { return &g }

// AllOptions lists the flags the transcoder understands.
var AllOptions = []Option{
	{
		Key:            OptionGeneratePTS,
		Name:           "Generate PTS",
		Description:    "Regenerate presentation timestamps from the camera feed",
		ExclusiveGroup: group(GroupTimestamps),
	},
	{
		Key:            OptionWallclockTimestamp,
		Name:           "Wallclock Timestamps",
		Description:    "Use wallclock as timestamps for cameras with broken clocks",
		ExclusiveGroup: group(GroupTimestamps),
	},
	{
		Key:         OptionIgnoreErrors,
		Name:        "Ignore Errors",
		Description: "Continue decoding despite corrupt packets",
	},
	{
		Key:         OptionLowLatency,
		Name:        "Low Latency Mode",
		Description: "Flush packets immediately and set low_delay",
	},
	{
		Key:         OptionNoBuffer,
		Name:        "No Input Buffer",
		Description: "Disable input buffering on the RTSP demuxer",
	},
}

// GetOptionByKey returns an option by its key
func GetOptionByKey(key OptionType) *Option {
	for i := range AllOptions {
		if AllOptions[i].Key == key {
			return &AllOptions[i]
		}
	}
	return nil
}

// ValidateOptions rejects unknown keys and more than one option per exclusive group.
func ValidateOptions(selected []OptionType) error {
	seen := make(map[ExclusiveGroup]string)
	for _, key := range selected {
		option := GetOptionByKey(key)
		if option == nil {
			return fmt.Errorf("unknown ffmpeg option %q", key)
		}
		if option.ExclusiveGroup == nil {
			continue
		}
		if prev, ok := seen[*option.ExclusiveGroup]; ok {
			return fmt.Errorf("multiple options from exclusive group '%s' selected: %s, %s", *option.ExclusiveGroup, prev, option.Name)
		}
		seen[*option.ExclusiveGroup] = option.Name
	}
	return nil
}

// ParseOptions converts comma separated keys, e.g. "low_latency,genpts".
func ParseOptions(s string) ([]OptionType, error) {
	var opts []OptionType
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			opts = append(opts, OptionType(part))
		}
	}
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// inputArgs renders options that must precede -i.
func inputArgs(options []OptionType) []string {
	var args []string
	var fflags []string

	for _, option := range options {
		switch option {
		case OptionGeneratePTS:
			fflags = append(fflags, "+genpts")
		case OptionNoBuffer:
			fflags = append(fflags, "+nobuffer")
		case OptionLowLatency:
			fflags = append(fflags, "+flush_packets")
			args = append(args, "-flags", "+low_delay")
		case OptionIgnoreErrors:
			args = append(args, "-err_detect", "ignore_err")
		case OptionWallclockTimestamp:
			args = append(args, "-use_wallclock_as_timestamps", "1")
		}
	}

	if len(fflags) > 0 {
		args = append(args, "-fflags", strings.Join(fflags, ""))
	}
	return args
}
