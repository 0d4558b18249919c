// Package reconcile compares local channel records against what the headend
// actually hosts and classifies every disagreement. Local state is the
// source of truth for channels this service owns.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"teamsync/internal/headend"
	"teamsync/internal/logging"
	"teamsync/internal/store"
)

// IssueType classifies a reconciliation finding.
type IssueType string

const (
	// OrphanLocal is a local record whose external channel no longer exists.
	OrphanLocal IssueType = "orphan_local"
	// OrphanExternal is a prefixed external channel with no local record.
	OrphanExternal IssueType = "orphan_external"
	// Duplicate is two or more local records claiming the same external channel.
	Duplicate IssueType = "duplicate"
	// Drift is an external channel that no longer matches its local record.
	Drift IssueType = "drift"
)

const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Issue is one reconciliation finding.
type Issue struct {
	Type            IssueType
	Severity        string
	ChannelID       int64
	ExternalID      int64
	Name            string
	Detail          string
	SuggestedAction string
	AutoFixable     bool
	Fixed           bool
}

// Summary is the result of one reconciliation pass.
type Summary struct {
	CheckedLocal    int
	CheckedExternal int
	Issues          []Issue
	Fixed           int
	Skipped         int
	RanAt           time.Time
}

// Counts returns issue tallies keyed by type.
func (s *Summary) Counts() map[IssueType]int {
	counts := make(map[IssueType]int)
	for _, issue := range s.Issues {
		counts[issue.Type]++
	}
	return counts
}

// Options controls a reconciliation pass.
type Options struct {
	// AutoFix repairs what can be repaired safely: drift is pushed back to
	// the headend, orphaned local records are retired. Orphaned external
	// channels and duplicates are only reported; deleting channels the
	// operator may have created by hand is never safe automatically.
	AutoFix bool
	// GroupIDs limits the pass to specific groups. Empty means all.
	GroupIDs []int64
}

// Service runs reconciliation passes.
type Service struct {
	store      *store.Store
	client     headend.Client
	namePrefix string
	logger     *slog.Logger
}

// NewService wires the reconciler. namePrefix identifies managed channels on
// the headend side.
func NewService(st *store.Store, client headend.Client, namePrefix string, logger *slog.Logger) *Service {
	return &Service{
		store:      st,
		client:     client,
		namePrefix: namePrefix,
		logger:     logging.NewComponentLogger(logger, "reconcile"),
	}
}

// Run executes one reconciliation pass.
func (s *Service) Run(ctx context.Context, opts Options) (*Summary, error) {
	if s.client == nil {
		return nil, fmt.Errorf("reconcile requires a headend client")
	}

	local, err := s.store.ListChannels(ctx, opts.GroupIDs...)
	if err != nil {
		return nil, err
	}
	external, err := s.client.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.store.ListGroups(ctx, true)
	if err != nil {
		return nil, err
	}
	groupByID := make(map[int64]*store.Group, len(groups))
	for _, g := range groups {
		groupByID[g.ID] = g
	}

	summary := &Summary{RanAt: time.Now().UTC()}

	externalByID := make(map[int64]headend.Channel, len(external))
	for _, ch := range external {
		externalByID[ch.ID] = ch
	}

	claimed := make(map[int64]int64) // external id -> local record id
	for _, lc := range local {
		if lc.Status == store.ChannelDeleted {
			continue
		}
		summary.CheckedLocal++
		if lc.ExternalID == 0 {
			continue
		}
		if firstID, dup := claimed[lc.ExternalID]; dup {
			summary.Issues = append(summary.Issues, Issue{
				Type:            Duplicate,
				Severity:        SeverityError,
				ChannelID:       lc.ID,
				ExternalID:      lc.ExternalID,
				Name:            lc.ChannelName,
				Detail:          fmt.Sprintf("external channel also claimed by local record %d", firstID),
				SuggestedAction: "remove one of the local records",
			})
			continue
		}
		claimed[lc.ExternalID] = lc.ID

		ext, ok := externalByID[lc.ExternalID]
		if !ok {
			issue := Issue{
				Type:            OrphanLocal,
				Severity:        SeverityError,
				ChannelID:       lc.ID,
				ExternalID:      lc.ExternalID,
				Name:            lc.ChannelName,
				Detail:          "external channel missing",
				SuggestedAction: "retire the local record",
				AutoFixable:     true,
			}
			if opts.AutoFix {
				lc.Status = store.ChannelDeleted
				lc.ExternalID = 0
				if err := s.store.UpdateChannel(ctx, lc); err != nil {
					issue.Detail += "; fix failed: " + err.Error()
				} else {
					issue.Fixed = true
				}
			}
			summary.Issues = append(summary.Issues, issue)
			continue
		}

		if detail := diffChannel(lc, groupByID[lc.GroupID], ext); detail != "" {
			issue := Issue{
				Type:            Drift,
				Severity:        SeverityWarning,
				ChannelID:       lc.ID,
				ExternalID:      lc.ExternalID,
				Name:            lc.ChannelName,
				Detail:          detail,
				SuggestedAction: "push the local attributes to the headend",
				AutoFixable:     true,
			}
			if opts.AutoFix {
				spec := headend.ChannelSpec{
					Name:      lc.ChannelName,
					StreamIDs: lc.StreamIDs,
				}
				if group := groupByID[lc.GroupID]; group != nil {
					spec.ChannelGroupID = group.ChannelGroupID
					spec.StreamProfileID = group.StreamProfileID
				}
				_, err := s.client.UpdateChannel(ctx, lc.ExternalID, spec)
				if err != nil {
					issue.Detail += "; fix failed: " + err.Error()
				} else {
					issue.Fixed = true
				}
			}
			summary.Issues = append(summary.Issues, issue)
		}
	}

	for _, ext := range external {
		if s.namePrefix == "" || !strings.HasPrefix(ext.Name, s.namePrefix) {
			continue
		}
		summary.CheckedExternal++

		if _, ok := claimed[ext.ID]; !ok {
			// Deleting a channel the operator may have created by hand is
			// never safe automatically.
			summary.Issues = append(summary.Issues, Issue{
				Type:            OrphanExternal,
				Severity:        SeverityWarning,
				ExternalID:      ext.ID,
				Name:            ext.Name,
				Detail:          "no local record",
				SuggestedAction: "delete the external channel or import it",
			})
		}
	}

	for _, issue := range summary.Issues {
		if issue.Fixed {
			summary.Fixed++
		} else {
			summary.Skipped++
		}
	}

	s.logger.Info("reconciliation finished",
		logging.Args(
			logging.Int("checked_local", summary.CheckedLocal),
			logging.Int("checked_external", summary.CheckedExternal),
			logging.Int("issues", len(summary.Issues)),
			logging.Int("fixed", summary.Fixed),
		)...)
	return summary, nil
}

// diffChannel compares the fields this service owns: name, stream list, and
// the group's configured channel-group and stream-profile assignments. Empty
// means in sync.
func diffChannel(local *store.ManagedChannel, group *store.Group, ext headend.Channel) string {
	var diffs []string
	if local.ChannelName != ext.Name {
		diffs = append(diffs, fmt.Sprintf("name %q != %q", ext.Name, local.ChannelName))
	}
	if !sameIDSet(local.StreamIDs, ext.StreamIDs) {
		diffs = append(diffs, "stream list differs")
	}
	if group != nil {
		if group.ChannelGroupID != 0 && ext.ChannelGroupID != group.ChannelGroupID {
			diffs = append(diffs, fmt.Sprintf("channel group %d != configured %d", ext.ChannelGroupID, group.ChannelGroupID))
		}
		if group.StreamProfileID != 0 && ext.StreamProfileID != group.StreamProfileID {
			diffs = append(diffs, fmt.Sprintf("stream profile %d != configured %d", ext.StreamProfileID, group.StreamProfileID))
		}
	}
	return strings.Join(diffs, "; ")
}

func sameIDSet(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int64(nil), a...)
	bs := append([]int64(nil), b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
