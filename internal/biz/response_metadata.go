package biz

import "time"

// PrimarySourceNone is reported when a response has no sources.
const PrimarySourceNone = "NONE"

// SourceType classifies a data source.
type SourceType string

const (
	SourceTypeAPI      SourceType = "API"
	SourceTypeCache    SourceType = "CACHE"
	SourceTypeDatabase SourceType = "DATABASE"
	SourceTypeComputed SourceType = "COMPUTED"
	SourceTypeFallback SourceType = "FALLBACK"
)

// DataSource records where one piece of a response came from.
type DataSource struct {
	Name      string     `json:"name"`
	Type      SourceType `json:"type"`
	FetchedAt time.Time  `json:"fetchedAt"`
	LatencyMs *int64     `json:"latencyMs,omitempty"`
	Provider  string     `json:"provider,omitempty"`
}

// ResponseMetadata describes the provenance and quality of a response.
type ResponseMetadata struct {
	PrimarySource           string       `json:"primarySource"`
	DataQuality             QualityLevel `json:"dataQuality"`
	QualityScore            int          `json:"qualityScore"`
	Sources                 []DataSource `json:"sources"`
	Warnings                []string     `json:"warnings"`
	MissingFields           []string     `json:"missingFields"`
	TotalLatencyMs          int64        `json:"totalLatencyMs"`
	CircuitBreakerTriggered bool         `json:"circuitBreakerTriggered"`
	FallbackUsed            bool         `json:"fallbackUsed"`
}

// MetadataInput is everything the caller already knows about a response.
type MetadataInput struct {
	Sources                 []DataSource
	Factors                 []QualityFactor
	MissingFields           []string
	Warnings                []string
	TotalLatencyMs          int64
	CircuitBreakerTriggered bool
	FallbackUsed            bool
}

// CreateResponseMetadata aggregates in. Slices are copied, so later changes
// to in do not leak into the result.
func CreateResponseMetadata(in MetadataInput) ResponseMetadata {
	quality := CalculateDataQuality(in.Factors)

	primary := PrimarySourceNone
	if len(in.Sources) > 0 {
		primary = in.Sources[0].Name
	}

	sources := make([]DataSource, len(in.Sources))
	for i, s := range in.Sources {
		if s.LatencyMs != nil {
			latency := *s.LatencyMs
			s.LatencyMs = &latency
		}
		sources[i] = s
	}

	return ResponseMetadata{
		PrimarySource:           primary,
		DataQuality:             quality.Level,
		QualityScore:            quality.Score,
		Sources:                 sources,
		Warnings:                append([]string{}, in.Warnings...),
		MissingFields:           append([]string{}, in.MissingFields...),
		TotalLatencyMs:          in.TotalLatencyMs,
		CircuitBreakerTriggered: in.CircuitBreakerTriggered,
		FallbackUsed:            in.FallbackUsed,
	}
}

// SourceFromExecution describes the data of an Execute call as a DataSource.
// Live data is an API source, anything else a fallback.
func SourceFromExecution(name, provider string, res *ExecutionResult, fetchedAt time.Time) DataSource {
	latency := res.LatencyMs
	src := DataSource{
		Name:      name,
		Type:      SourceTypeAPI,
		FetchedAt: fetchedAt,
		LatencyMs: &latency,
		Provider:  provider,
	}
	if res.Source != SourceLive {
		src.Type = SourceTypeFallback
	}
	return src
}
