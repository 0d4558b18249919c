package store

import "time"

// ChannelStatus represents the lifecycle state of a managed channel.
type ChannelStatus string

const (
	ChannelPendingCreate ChannelStatus = "pending_create"
	ChannelActive        ChannelStatus = "active"
	ChannelPendingDelete ChannelStatus = "pending_delete"
	ChannelDeleted       ChannelStatus = "deleted"
	ChannelError         ChannelStatus = "error"
)

// Duplicate-event handling policies.
const (
	DuplicateConsolidate = "consolidate"
	DuplicateSeparate    = "separate"
	DuplicateIgnore      = "ignore"
)

// Channel assignment modes.
const (
	AssignAuto   = "auto"
	AssignManual = "manual"
)

// Create timing policies.
const (
	CreateSameDay    = "same_day"
	CreateDaysBefore = "days_before"
	CreateManual     = "manual"
)

// Delete timing policies.
const (
	DeleteEventEnd      = "event_end"
	DeleteHoursAfter    = "hours_after"
	DeleteStreamRemoved = "stream_removed"
	DeleteManual        = "manual"
)

// ManagedChannel is a channel teamsync owns on the external system.
// ExternalID is zero until the channel has actually been created there.
// Label is set on alternate-feed channels carved out by a keyword match;
// labeled channels never absorb other streams under consolidation.
type ManagedChannel struct {
	ID                  int64
	GroupID             int64
	ExternalID          int64
	PrimaryStreamID     int64
	StreamIDs           []int64
	EventID             string
	EventLeague         string
	EventStart          time.Time
	ChannelName         string
	Label               string
	Status              ChannelStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ScheduledDeletionAt *time.Time
}

// Group is an operator-defined matching and lifecycle policy.
type Group struct {
	ID                     int64
	Name                   string
	Leagues                []string
	DuplicateEventHandling string
	ChannelAssignmentMode  string
	CreateTiming           string
	CreateDaysBefore       int
	DeleteTiming           string
	DeleteHoursAfter       int
	M3UGroupID             int64
	ChannelGroupID         int64
	StreamProfileID        int64
	ChannelStartNumber     int
	Active                 bool
}

// Keyword is an operator-configured exception term set.
type Keyword struct {
	ID       int64
	Terms    []string
	Label    string
	Behavior string
	Enabled  bool
}
