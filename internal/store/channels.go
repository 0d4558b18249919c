package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const channelColumns = "id, group_id, external_id, primary_stream_id, stream_ids_json, event_id, event_league, event_start, channel_name, label, status, created_at, updated_at, scheduled_deletion_at"

// InsertChannel persists a new managed channel record.
func (s *Store) InsertChannel(ctx context.Context, ch *ManagedChannel) (*ManagedChannel, error) {
	if ch == nil {
		return nil, errors.New("channel is nil")
	}
	now := s.now().UTC()
	streamIDs, err := json.Marshal(orEmpty(ch.StreamIDs))
	if err != nil {
		return nil, fmt.Errorf("marshal stream ids: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO managed_channels (
            group_id, external_id, primary_stream_id, stream_ids_json, event_id,
            event_league, event_start, channel_name, label, status, created_at,
            updated_at, scheduled_deletion_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.GroupID,
		ch.ExternalID,
		ch.PrimaryStreamID,
		string(streamIDs),
		ch.EventID,
		ch.EventLeague,
		formatTime(ch.EventStart),
		ch.ChannelName,
		ch.Label,
		string(ch.Status),
		formatTime(now),
		formatTime(now),
		nullableTime(ch.ScheduledDeletionAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetChannel(ctx, id)
}

// UpdateChannel persists changes to an existing managed channel.
func (s *Store) UpdateChannel(ctx context.Context, ch *ManagedChannel) error {
	if ch == nil {
		return errors.New("channel is nil")
	}
	ch.UpdatedAt = s.now().UTC()
	streamIDs, err := json.Marshal(orEmpty(ch.StreamIDs))
	if err != nil {
		return fmt.Errorf("marshal stream ids: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE managed_channels
         SET group_id = ?, external_id = ?, primary_stream_id = ?, stream_ids_json = ?,
             event_id = ?, event_league = ?, event_start = ?, channel_name = ?,
             label = ?, status = ?, updated_at = ?, scheduled_deletion_at = ?
         WHERE id = ?`,
		ch.GroupID,
		ch.ExternalID,
		ch.PrimaryStreamID,
		string(streamIDs),
		ch.EventID,
		ch.EventLeague,
		formatTime(ch.EventStart),
		ch.ChannelName,
		ch.Label,
		string(ch.Status),
		formatTime(ch.UpdatedAt),
		nullableTime(ch.ScheduledDeletionAt),
		ch.ID,
	)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	return nil
}

// GetChannel fetches a managed channel by identifier. Returns nil when absent.
func (s *Store) GetChannel(ctx context.Context, id int64) (*ManagedChannel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM managed_channels WHERE id = ?`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return ch, nil
}

// FindChannelByGroupEvent returns the channel tracking an event within a
// group, excluding deleted records and labeled alternate-feed channels.
// Used by the consolidate policy.
func (s *Store) FindChannelByGroupEvent(ctx context.Context, groupID int64, eventID string) (*ManagedChannel, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+channelColumns+` FROM managed_channels
         WHERE group_id = ? AND event_id = ? AND label = '' AND status != ? ORDER BY id LIMIT 1`,
		groupID, eventID, string(ChannelDeleted),
	)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find channel by event: %w", err)
	}
	return ch, nil
}

// FindChannelByGroupStream returns the channel bound to a stream within a
// group, excluding deleted records. Used by the separate policy.
func (s *Store) FindChannelByGroupStream(ctx context.Context, groupID, streamID int64) (*ManagedChannel, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+channelColumns+` FROM managed_channels
         WHERE group_id = ? AND primary_stream_id = ? AND status != ? ORDER BY id LIMIT 1`,
		groupID, streamID, string(ChannelDeleted),
	)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find channel by stream: %w", err)
	}
	return ch, nil
}

// ListChannels returns managed channels, optionally filtered by group ids.
func (s *Store) ListChannels(ctx context.Context, groupIDs ...int64) ([]*ManagedChannel, error) {
	query := `SELECT ` + channelColumns + ` FROM managed_channels`
	var args []any
	if len(groupIDs) > 0 {
		query += ` WHERE group_id IN (` + makePlaceholders(len(groupIDs)) + `)`
		for _, id := range groupIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []*ManagedChannel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// ChannelsDueForDeletion returns pending-delete channels whose deadline has
// passed.
func (s *Store) ChannelsDueForDeletion(ctx context.Context, now time.Time) ([]*ManagedChannel, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+channelColumns+` FROM managed_channels
         WHERE status = ? AND scheduled_deletion_at IS NOT NULL AND scheduled_deletion_at <= ?
         ORDER BY id`,
		string(ChannelPendingDelete),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("query due deletions: %w", err)
	}
	defer rows.Close()

	var channels []*ManagedChannel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// DeleteChannel removes a managed channel record.
func (s *Store) DeleteChannel(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM managed_channels WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanChannel(scanner interface{ Scan(dest ...any) error }) (*ManagedChannel, error) {
	var (
		id            int64
		groupID       int64
		externalID    int64
		primaryStream int64
		streamIDsRaw  string
		eventID       string
		eventLeague   string
		eventStartRaw string
		channelName   string
		label         string
		statusStr     string
		createdRaw    string
		updatedRaw    string
		deletionRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&groupID,
		&externalID,
		&primaryStream,
		&streamIDsRaw,
		&eventID,
		&eventLeague,
		&eventStartRaw,
		&channelName,
		&label,
		&statusStr,
		&createdRaw,
		&updatedRaw,
		&deletionRaw,
	); err != nil {
		return nil, err
	}

	ch := &ManagedChannel{
		ID:              id,
		GroupID:         groupID,
		ExternalID:      externalID,
		PrimaryStreamID: primaryStream,
		EventID:         eventID,
		EventLeague:     eventLeague,
		ChannelName:     channelName,
		Label:           label,
		Status:          ChannelStatus(statusStr),
	}
	if err := json.Unmarshal([]byte(streamIDsRaw), &ch.StreamIDs); err != nil {
		return nil, fmt.Errorf("parse stream ids: %w", err)
	}
	if t, err := parseTimeString(eventStartRaw); err == nil {
		ch.EventStart = t
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		ch.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		ch.UpdatedAt = t
	}
	if deletionRaw.Valid {
		if t, err := parseTimeString(deletionRaw.String); err == nil {
			ch.ScheduledDeletionAt = &t
		}
	}
	return ch, nil
}

func orEmpty(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
