package types

import (
	"time"

	"github.com/google/uuid"
)

// DiscoveredURLStatus is the triage state of a discovered URL.
type DiscoveredURLStatus string

// Discovered URL status values
const (
	DiscoveredNew        DiscoveredURLStatus = "new"
	DiscoveredProcessing DiscoveredURLStatus = "processing"
	DiscoveredProcessed  DiscoveredURLStatus = "processed"
	DiscoveredIrrelevant DiscoveredURLStatus = "irrelevant"
)

// DiscoveredURL is a URL found by discovery, pending triage into a Job.
type DiscoveredURL struct {
	ID                 uuid.UUID           `json:"id"`
	URL                string              `json:"url"`
	SourceDirectoryURL string              `json:"source_directory_url,omitempty"`
	Region             string              `json:"region,omitempty"`
	Status             DiscoveredURLStatus `json:"status"`
	Notes              string              `json:"notes,omitempty"`
	DiscoveredAt       time.Time           `json:"discovered_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}
