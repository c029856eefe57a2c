// Package report builds the CSV reports: roster enrichment, department
// pivot, application assignments, FastPass enrollments and the purge log.
package report

import (
	"context"
	"errors"

	"github.com/Sternrassler/idp-reports/pkg/directory"
)

// Directory is the remote data a report reads. *directory.Service
// implements it.
type Directory interface {
	ListUsers(ctx context.Context, q directory.UserQuery) ([]directory.User, error)
	ListUserFactors(ctx context.Context, userID string) ([]directory.Factor, error)
	SearchGroups(ctx context.Context, q string) ([]directory.Group, error)
	CountGroupMembers(ctx context.Context, groupID string) (int, error)
	ListApps(ctx context.Context, filter string) ([]directory.Application, error)
	ListAppUsers(ctx context.Context, appID string) ([]directory.AppUser, error)
	DeleteUser(ctx context.Context, userID string) error
}

// ErrEmptyDirectory is returned when a report that compares against the
// directory received no users at all. Writing such a report would mark
// every row as missing.
var ErrEmptyDirectory = errors.New("no users fetched from the directory")

// Filters used by the reports.
const (
	ActiveUsersSearch = `status eq "ACTIVE"`
	ActiveAppsFilter  = `status eq "ACTIVE"`
)

var _ Directory = (*directory.Service)(nil)
