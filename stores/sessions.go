package stores

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/dodgeball-server/errors"
)

// SessionRecord is the persisted part of a session. Live progress like
// participants, rosters or thrown balls is never persisted, a loaded session
// always starts fresh.
type SessionRecord struct {
	// ID identifies the session.
	ID string
	// Enabled controls whether players may join.
	Enabled bool
	// ArenaRef is the reference of the provisioned arena world.
	ArenaRef string
	// LobbySpawn is the encoded lobby spawn location. Not set until setup
	// assigned one.
	LobbySpawn nulls.String
	// Teams are the persisted custom teams in creation order.
	Teams []TeamRecord
}

// TeamRecord is the persisted part of a team.
type TeamRecord struct {
	// ID identifies the team within its session.
	ID string
	// DisplayName is the human-readable team name.
	DisplayName string
	// ChatPrefix is prepended to chat messages of team members.
	ChatPrefix string
	// ColorID references the presentation color.
	ColorID string
	// Playable states whether the team takes part in rounds.
	Playable bool
	// PositionOne is the encoded first area corner. Not set until setup
	// assigned one.
	PositionOne nulls.String
	// PositionTwo is the encoded second area corner. Not set until setup
	// assigned one.
	PositionTwo nulls.String
}

// SessionRecords retrieves all persisted sessions including their teams.
func (m *Mall) SessionRecords(ctx context.Context) ([]SessionRecord, error) {
	q, _, err := m.dialect.From(goqu.T("sessions")).
		Select(goqu.C("id"), goqu.C("enabled"), goqu.C("arena_ref"), goqu.C("lobby_spawn")).
		Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	rows, err := m.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, q, nil)
	}
	defer closeRows(rows)
	records := make([]SessionRecord, 0)
	for rows.Next() {
		var record SessionRecord
		err = rows.Scan(&record.ID, &record.Enabled, &record.ArenaRef, &record.LobbySpawn)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, q)
		}
		records = append(records, record)
	}
	for i := range records {
		records[i].Teams, err = m.teamRecords(ctx, records[i].ID)
		if err != nil {
			return nil, errors.Wrap(err, "retrieve team records", errors.Details{"session": records[i].ID})
		}
	}
	return records, nil
}

// SessionRecordByID retrieves the persisted session with the given id
// including its teams.
func (m *Mall) SessionRecordByID(ctx context.Context, sessionID string) (SessionRecord, error) {
	q, _, err := m.dialect.From(goqu.T("sessions")).
		Select(goqu.C("id"), goqu.C("enabled"), goqu.C("arena_ref"), goqu.C("lobby_spawn")).
		Where(goqu.C("id").Eq(sessionID)).ToSQL()
	if err != nil {
		return SessionRecord{}, errors.NewQueryToSQLError(err, errors.Details{"session": sessionID})
	}
	var record SessionRecord
	err = m.db.QueryRowContext(ctx, q).Scan(&record.ID, &record.Enabled, &record.ArenaRef, &record.LobbySpawn)
	if err != nil {
		return SessionRecord{}, errors.NewScanSingleDBRowError(fmt.Sprintf("session %s not found", sessionID), err,
			errors.Details{"session": sessionID, "query": q})
	}
	record.Teams, err = m.teamRecords(ctx, sessionID)
	if err != nil {
		return SessionRecord{}, errors.Wrap(err, "retrieve team records", nil)
	}
	return record, nil
}

func (m *Mall) teamRecords(ctx context.Context, sessionID string) ([]TeamRecord, error) {
	q, _, err := m.dialect.From(goqu.T("teams")).
		Select(goqu.C("id"), goqu.C("display_name"), goqu.C("chat_prefix"), goqu.C("color_id"),
			goqu.C("playable"), goqu.C("pos_one"), goqu.C("pos_two")).
		Where(goqu.C("session_id").Eq(sessionID)).
		Order(goqu.C("num").Asc()).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, errors.Details{"session": sessionID})
	}
	rows, err := m.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, q, errors.Details{"session": sessionID})
	}
	defer closeRows(rows)
	teams := make([]TeamRecord, 0)
	for rows.Next() {
		var team TeamRecord
		err = rows.Scan(&team.ID, &team.DisplayName, &team.ChatPrefix, &team.ColorID,
			&team.Playable, &team.PositionOne, &team.PositionTwo)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, q)
		}
		teams = append(teams, team)
	}
	return teams, nil
}

// CreateSessionRecord persists the given record including its teams.
func (m *Mall) CreateSessionRecord(ctx context.Context, record SessionRecord) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDBTxBeginError(err)
	}
	q, _, err := m.dialect.Insert(goqu.T("sessions")).Rows(goqu.Record{
		"id":          record.ID,
		"enabled":     record.Enabled,
		"arena_ref":   record.ArenaRef,
		"lobby_spawn": record.LobbySpawn,
	}).ToSQL()
	if err != nil {
		rollbackTx(tx, "insert session query to sql failed")
		return errors.NewQueryToSQLError(err, errors.Details{"session": record.ID})
	}
	_, err = tx.ExecContext(ctx, q)
	if err != nil {
		rollbackTx(tx, "insert session failed")
		return errors.NewExecQueryError(err, q, errors.Details{"session": record.ID})
	}
	err = insertTeamRecords(ctx, tx, m.dialect, record.ID, record.Teams)
	if err != nil {
		rollbackTx(tx, "insert team records failed")
		return errors.Wrap(err, "insert team records", nil)
	}
	err = tx.Commit()
	if err != nil {
		return errors.NewDBTxCommitError(err)
	}
	return nil
}

// SaveSessionRecord overwrites the persisted session with the given record.
// Teams are replaced as a whole.
func (m *Mall) SaveSessionRecord(ctx context.Context, record SessionRecord) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDBTxBeginError(err)
	}
	q, _, err := m.dialect.Update(goqu.T("sessions")).
		Set(goqu.Record{
			"enabled":     record.Enabled,
			"arena_ref":   record.ArenaRef,
			"lobby_spawn": record.LobbySpawn,
		}).
		Where(goqu.C("id").Eq(record.ID)).ToSQL()
	if err != nil {
		rollbackTx(tx, "update session query to sql failed")
		return errors.NewQueryToSQLError(err, errors.Details{"session": record.ID})
	}
	result, err := tx.ExecContext(ctx, q)
	if err != nil {
		rollbackTx(tx, "update session failed")
		return errors.NewExecQueryError(err, q, errors.Details{"session": record.ID})
	}
	err = assureOneRowAffectedForNotFound(result, fmt.Sprintf("session %s not found", record.ID),
		"sessions", record.ID, q)
	if err != nil {
		rollbackTx(tx, "session to update not found")
		return errors.Wrap(err, "assure found", nil)
	}
	q, _, err = m.dialect.Delete(goqu.T("teams")).
		Where(goqu.C("session_id").Eq(record.ID)).ToSQL()
	if err != nil {
		rollbackTx(tx, "delete team records query to sql failed")
		return errors.NewQueryToSQLError(err, errors.Details{"session": record.ID})
	}
	_, err = tx.ExecContext(ctx, q)
	if err != nil {
		rollbackTx(tx, "delete team records failed")
		return errors.NewExecQueryError(err, q, errors.Details{"session": record.ID})
	}
	err = insertTeamRecords(ctx, tx, m.dialect, record.ID, record.Teams)
	if err != nil {
		rollbackTx(tx, "insert team records failed")
		return errors.Wrap(err, "insert team records", nil)
	}
	err = tx.Commit()
	if err != nil {
		return errors.NewDBTxCommitError(err)
	}
	return nil
}

func insertTeamRecords(ctx context.Context, tx *sql.Tx, dialect goqu.DialectWrapper, sessionID string,
	teams []TeamRecord) error {
	for num, team := range teams {
		q, _, err := dialect.Insert(goqu.T("teams")).Rows(goqu.Record{
			"session_id":   sessionID,
			"num":          num,
			"id":           team.ID,
			"display_name": team.DisplayName,
			"chat_prefix":  team.ChatPrefix,
			"color_id":     team.ColorID,
			"playable":     team.Playable,
			"pos_one":      team.PositionOne,
			"pos_two":      team.PositionTwo,
		}).ToSQL()
		if err != nil {
			return errors.NewQueryToSQLError(err, errors.Details{"session": sessionID, "team": team.ID})
		}
		result, err := tx.ExecContext(ctx, q)
		if err != nil {
			return errors.NewExecQueryError(err, q, errors.Details{"session": sessionID, "team": team.ID})
		}
		err = assureNRowsAffected(result, 1)
		if err != nil {
			return errors.Wrap(err, "assure team record inserted", errors.Details{"team": team.ID})
		}
	}
	return nil
}

// SetSessionRecordEnabled updates the enabled flag of the persisted session
// with the given id.
func (m *Mall) SetSessionRecordEnabled(ctx context.Context, sessionID string, enabled bool) error {
	q, _, err := m.dialect.Update(goqu.T("sessions")).
		Set(goqu.Record{"enabled": enabled}).
		Where(goqu.C("id").Eq(sessionID)).ToSQL()
	if err != nil {
		return errors.NewQueryToSQLError(err, errors.Details{"session": sessionID})
	}
	result, err := m.db.ExecContext(ctx, q)
	if err != nil {
		return errors.NewExecQueryError(err, q, errors.Details{"session": sessionID})
	}
	err = assureOneRowAffectedForNotFound(result, fmt.Sprintf("session %s not found", sessionID),
		"sessions", sessionID, q)
	if err != nil {
		return errors.Wrap(err, "assure found", nil)
	}
	return nil
}

// DeleteSessionRecord deletes the persisted session with the given id
// including its teams.
func (m *Mall) DeleteSessionRecord(ctx context.Context, sessionID string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDBTxBeginError(err)
	}
	q, _, err := m.dialect.Delete(goqu.T("teams")).
		Where(goqu.C("session_id").Eq(sessionID)).ToSQL()
	if err != nil {
		rollbackTx(tx, "delete team records query to sql failed")
		return errors.NewQueryToSQLError(err, errors.Details{"session": sessionID})
	}
	_, err = tx.ExecContext(ctx, q)
	if err != nil {
		rollbackTx(tx, "delete team records failed")
		return errors.NewExecQueryError(err, q, errors.Details{"session": sessionID})
	}
	q, _, err = m.dialect.Delete(goqu.T("sessions")).
		Where(goqu.C("id").Eq(sessionID)).ToSQL()
	if err != nil {
		rollbackTx(tx, "delete session query to sql failed")
		return errors.NewQueryToSQLError(err, errors.Details{"session": sessionID})
	}
	result, err := tx.ExecContext(ctx, q)
	if err != nil {
		rollbackTx(tx, "delete session failed")
		return errors.NewExecQueryError(err, q, errors.Details{"session": sessionID})
	}
	err = assureOneRowAffectedForNotFound(result, fmt.Sprintf("session %s not found", sessionID),
		"sessions", sessionID, q)
	if err != nil {
		rollbackTx(tx, "session to delete not found")
		return errors.Wrap(err, "assure found", nil)
	}
	err = tx.Commit()
	if err != nil {
		return errors.NewDBTxCommitError(err)
	}
	return nil
}
