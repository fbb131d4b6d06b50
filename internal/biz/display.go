package biz

// StatusDisplay is the user-facing presentation of a response's data status.
type StatusDisplay struct {
	Label   string `json:"label"`
	Color   string `json:"color"`
	Icon    string `json:"icon"`
	Tooltip string `json:"tooltip"`
}

type displayKey struct {
	level    QualityLevel
	fallback bool
}

var insufficientDisplay = StatusDisplay{
	Label:   "Insufficient data",
	Color:   "red",
	Icon:    "x-circle",
	Tooltip: "Not enough data was available to produce a reliable analysis.",
}

var statusDisplays = map[displayKey]StatusDisplay{
	{QualityHigh, false}: {
		Label:   "Live data",
		Color:   "green",
		Icon:    "check-circle",
		Tooltip: "All expected data was fetched live.",
	},
	{QualityHigh, true}: {
		Label:   "Cached data",
		Color:   "blue",
		Icon:    "clock",
		Tooltip: "Complete data served from cache while a provider is unavailable.",
	},
	{QualityMedium, false}: {
		Label:   "Partial data",
		Color:   "yellow",
		Icon:    "alert-circle",
		Tooltip: "Some inputs were missing; results may be less precise.",
	},
	{QualityMedium, true}: {
		Label:   "Partial cached data",
		Color:   "yellow",
		Icon:    "clock",
		Tooltip: "Some inputs were missing and part of the data came from cache.",
	},
	{QualityLow, false}: {
		Label:   "Limited data",
		Color:   "orange",
		Icon:    "alert-triangle",
		Tooltip: "Many inputs were missing; treat results as indicative only.",
	},
	{QualityLow, true}: {
		Label:   "Limited cached data",
		Color:   "orange",
		Icon:    "alert-triangle",
		Tooltip: "Many inputs were missing and the rest came from cache.",
	},
	{QualityInsufficient, false}: insufficientDisplay,
	{QualityInsufficient, true}:  insufficientDisplay,
}

// GetDataStatusDisplay looks up the presentation for (DataQuality, FallbackUsed).
// Unknown levels are shown as insufficient.
func GetDataStatusDisplay(meta ResponseMetadata) StatusDisplay {
	if d, ok := statusDisplays[displayKey{meta.DataQuality, meta.FallbackUsed}]; ok {
		return d
	}
	return insufficientDisplay
}
