package stores

import (
	"context"
	"database/sql"
	nativeerrors "errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/lefinal/dodgeball-server/errors"
)

// User holds the persisted stats of a player.
type User struct {
	// ID identifies the player.
	ID string
	// Kills is the total number of opponents the player hit.
	Kills int
	// Deaths is the total number of times the player got hit.
	Deaths int
	// Coins is the currency balance of the player.
	Coins int
	// Level is the progression level of the player.
	Level int
}

// UserByID retrieves the user with the given id. If the user is unknown, an
// errors.ErrNotFound error is returned.
func (m *Mall) UserByID(ctx context.Context, userID string) (User, error) {
	q, _, err := m.dialect.From(goqu.T("users")).
		Select(goqu.C("id"), goqu.C("kills"), goqu.C("deaths"), goqu.C("coins"), goqu.C("level")).
		Where(goqu.C("id").Eq(userID)).ToSQL()
	if err != nil {
		return User{}, errors.NewQueryToSQLError(err, errors.Details{"user": userID})
	}
	var user User
	err = m.db.QueryRowContext(ctx, q).Scan(&user.ID, &user.Kills, &user.Deaths, &user.Coins, &user.Level)
	if err != nil {
		if nativeerrors.Is(err, sql.ErrNoRows) {
			return User{}, errors.NewResourceNotFoundError(fmt.Sprintf("user %s not found", userID),
				errors.Details{"user": userID})
		}
		return User{}, errors.NewScanSingleDBRowError(fmt.Sprintf("retrieve user %s", userID), err,
			errors.Details{"user": userID, "query": q})
	}
	return user, nil
}

// CreateUser persists the given user.
func (m *Mall) CreateUser(ctx context.Context, user User) error {
	q, _, err := m.dialect.Insert(goqu.T("users")).Rows(goqu.Record{
		"id":     user.ID,
		"kills":  user.Kills,
		"deaths": user.Deaths,
		"coins":  user.Coins,
		"level":  user.Level,
	}).ToSQL()
	if err != nil {
		return errors.NewQueryToSQLError(err, errors.Details{"user": user.ID})
	}
	_, err = m.db.ExecContext(ctx, q)
	if err != nil {
		return errors.NewExecQueryError(err, q, errors.Details{"user": user.ID})
	}
	return nil
}

// SaveUserStats updates the stats of the persisted user with the id from the
// given user.
func (m *Mall) SaveUserStats(ctx context.Context, user User) error {
	q, _, err := m.dialect.Update(goqu.T("users")).
		Set(goqu.Record{
			"kills":  user.Kills,
			"deaths": user.Deaths,
			"coins":  user.Coins,
			"level":  user.Level,
		}).
		Where(goqu.C("id").Eq(user.ID)).ToSQL()
	if err != nil {
		return errors.NewQueryToSQLError(err, errors.Details{"user": user.ID})
	}
	result, err := m.db.ExecContext(ctx, q)
	if err != nil {
		return errors.NewExecQueryError(err, q, errors.Details{"user": user.ID})
	}
	err = assureOneRowAffectedForNotFound(result, fmt.Sprintf("user %s not found", user.ID),
		"users", user.ID, q)
	if err != nil {
		return errors.Wrap(err, "assure found", nil)
	}
	return nil
}
