package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const groupColumns = "id, name, leagues_json, duplicate_event_handling, channel_assignment_mode, create_timing, create_days_before, delete_timing, delete_hours_after, m3u_group_id, channel_group_id, stream_profile_id, channel_start_number, active"

// GetGroup fetches a group by identifier. Returns nil when absent.
func (s *Store) GetGroup(ctx context.Context, id int64) (*Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM event_groups WHERE id = ?`, id)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// ListGroups returns groups ordered by id. Inactive groups are skipped
// unless includeInactive is set.
func (s *Store) ListGroups(ctx context.Context, includeInactive bool) ([]*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM event_groups`
	if !includeInactive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// SaveGroup inserts or updates a group. Editing flows live elsewhere; this
// exists for bootstrap and tests.
func (s *Store) SaveGroup(ctx context.Context, group *Group) (*Group, error) {
	if group == nil {
		return nil, errors.New("group is nil")
	}
	leagues, err := json.Marshal(group.Leagues)
	if err != nil {
		return nil, fmt.Errorf("marshal leagues: %w", err)
	}

	if group.ID == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`INSERT INTO event_groups (
                name, leagues_json, duplicate_event_handling, channel_assignment_mode,
                create_timing, create_days_before, delete_timing, delete_hours_after,
                m3u_group_id, channel_group_id, stream_profile_id, channel_start_number, active
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			group.Name, string(leagues), group.DuplicateEventHandling, group.ChannelAssignmentMode,
			group.CreateTiming, group.CreateDaysBefore, group.DeleteTiming, group.DeleteHoursAfter,
			group.M3UGroupID, group.ChannelGroupID, group.StreamProfileID, group.ChannelStartNumber,
			boolToInt(group.Active),
		)
		if err != nil {
			return nil, fmt.Errorf("insert group: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		return s.GetGroup(ctx, id)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE event_groups
         SET name = ?, leagues_json = ?, duplicate_event_handling = ?, channel_assignment_mode = ?,
             create_timing = ?, create_days_before = ?, delete_timing = ?, delete_hours_after = ?,
             m3u_group_id = ?, channel_group_id = ?, stream_profile_id = ?, channel_start_number = ?,
             active = ?
         WHERE id = ?`,
		group.Name, string(leagues), group.DuplicateEventHandling, group.ChannelAssignmentMode,
		group.CreateTiming, group.CreateDaysBefore, group.DeleteTiming, group.DeleteHoursAfter,
		group.M3UGroupID, group.ChannelGroupID, group.StreamProfileID, group.ChannelStartNumber,
		boolToInt(group.Active), group.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	return s.GetGroup(ctx, group.ID)
}

func scanGroup(scanner interface{ Scan(dest ...any) error }) (*Group, error) {
	var (
		group      Group
		leaguesRaw string
		active     int
	)
	if err := scanner.Scan(
		&group.ID,
		&group.Name,
		&leaguesRaw,
		&group.DuplicateEventHandling,
		&group.ChannelAssignmentMode,
		&group.CreateTiming,
		&group.CreateDaysBefore,
		&group.DeleteTiming,
		&group.DeleteHoursAfter,
		&group.M3UGroupID,
		&group.ChannelGroupID,
		&group.StreamProfileID,
		&group.ChannelStartNumber,
		&active,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(leaguesRaw), &group.Leagues); err != nil {
		return nil, fmt.Errorf("parse leagues: %w", err)
	}
	group.Active = active != 0
	return &group, nil
}
