package report

import (
	"context"
	"fmt"

	"github.com/Sternrassler/idp-reports/pkg/directory"
	"github.com/Sternrassler/idp-reports/pkg/match"
	"github.com/Sternrassler/idp-reports/pkg/roster"
	"github.com/rs/zerolog/log"
)

// Enrich fetches the whole user directory and matches rows against it.
// The result has one row per input row, plus one extra row for every
// additional candidate of an ambiguous name. An empty directory is an
// error.
func Enrich(ctx context.Context, dir Directory, rows []roster.Row, fields match.Fields) ([]match.Result, error) {
	users, err := dir.ListUsers(ctx, directory.UserQuery{})
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("enrich: %w", ErrEmptyDirectory)
	}

	results := match.NewMatcher(users, fields).Match(rows)

	summary := match.Summary(results)
	log.Info().
		Str("component", "report").
		Int("input_rows", len(rows)).
		Int("directory_users", len(users)).
		Int("email", summary[match.ExactEmail]).
		Int("name", summary[match.Name]).
		Int("multiple", summary[match.MultipleNames]).
		Int("none", summary[match.NoMatch]).
		Msg("Roster enriched")

	return results, nil
}
