package report

import (
	"context"
	"fmt"

	"github.com/Sternrassler/idp-reports/pkg/directory"
	"github.com/Sternrassler/idp-reports/pkg/roster"
	"github.com/rs/zerolog/log"
)

// Purge log columns.
const (
	ColPurgeLogin      = "login"
	ColPurgeID         = "id"
	ColPurgeDepartment = "department"
	ColPurgeAction     = "action"
)

// Purge actions.
const (
	ActionDryRun      = "dry-run"
	ActionDeactivated = "deactivated"
	ActionDeleted     = "deleted"
	ActionFailed      = "failed"
)

// PurgeOptions controls what Purge does to each candidate.
type PurgeOptions struct {
	// KeepDepartment users are never candidates. Compared exactly; a user
	// without a department counts as "N/A".
	KeepDepartment string

	// Execute sends the delete requests. Without it nothing is changed.
	Execute bool

	// Permanent sends a second delete after the first succeeded. The first
	// deactivates an active user, the second removes it.
	Permanent bool
}

// PurgeCandidates lists users outside the keep department.
func PurgeCandidates(ctx context.Context, dir Directory, keepDepartment string) ([]directory.User, error) {
	users, err := dir.ListUsers(ctx, directory.UserQuery{})
	if err != nil {
		return nil, fmt.Errorf("purge: %w", err)
	}

	var candidates []directory.User
	for _, u := range users {
		if u.Profile.StringOr(directory.AttrDepartment, directory.NotAvailable) != keepDepartment {
			candidates = append(candidates, u)
		}
	}
	return candidates, nil
}

// Purge processes candidates in order and returns one log row per
// candidate handled. The first failed request stops the run; the log up
// to and including the failed user is returned with the error.
func Purge(ctx context.Context, dir Directory, candidates []directory.User, opts PurgeOptions) ([]roster.Row, error) {
	logger := log.With().Str("component", "report").Str("report", "purge").Logger()

	rows := make([]roster.Row, 0, len(candidates))
	for _, u := range candidates {
		row := roster.NewRow(
			ColPurgeLogin, u.Login(),
			ColPurgeID, u.ID,
			ColPurgeDepartment, u.Profile.StringOr(directory.AttrDepartment, directory.NotAvailable),
			ColPurgeAction, ActionDryRun,
		)

		if !opts.Execute {
			logger.Info().Str("login", u.Login()).Msg("Would delete user")
			rows = append(rows, row)
			continue
		}

		action, err := purgeUser(ctx, dir, u.ID, opts.Permanent)
		row.Set(ColPurgeAction, action)
		rows = append(rows, row)
		if err != nil {
			return rows, err
		}
		logger.Info().Str("login", u.Login()).Str("action", action).Msg("User purged")
	}
	return rows, nil
}

func purgeUser(ctx context.Context, dir Directory, id string, permanent bool) (string, error) {
	if err := dir.DeleteUser(ctx, id); err != nil {
		return ActionFailed, fmt.Errorf("purge: %w", err)
	}
	if !permanent {
		return ActionDeactivated, nil
	}
	if err := dir.DeleteUser(ctx, id); err != nil {
		return ActionDeactivated, fmt.Errorf("purge: permanent delete: %w", err)
	}
	return ActionDeleted, nil
}
