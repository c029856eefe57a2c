package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/idp-reports/pkg/client"
	"github.com/Sternrassler/idp-reports/pkg/directory"
)

// fakeDirectory serves canned data and records calls.
type fakeDirectory struct {
	users     []directory.User
	usersErr  error
	factors   map[string][]directory.Factor
	groups    map[string][]directory.Group
	groupErr  map[string]error
	members   map[string]int
	apps      []directory.Application
	appUsers  map[string][]directory.AppUser
	deleteErr map[string]error

	queries []directory.UserQuery
	filters []string
	deletes []string
}

func (f *fakeDirectory) ListUsers(_ context.Context, q directory.UserQuery) ([]directory.User, error) {
	f.queries = append(f.queries, q)
	return f.users, f.usersErr
}

func (f *fakeDirectory) ListUserFactors(_ context.Context, userID string) ([]directory.Factor, error) {
	return f.factors[userID], nil
}

func (f *fakeDirectory) SearchGroups(_ context.Context, q string) ([]directory.Group, error) {
	if err := f.groupErr[q]; err != nil {
		return nil, err
	}
	return f.groups[q], nil
}

func (f *fakeDirectory) CountGroupMembers(_ context.Context, groupID string) (int, error) {
	return f.members[groupID], nil
}

func (f *fakeDirectory) ListApps(_ context.Context, filter string) ([]directory.Application, error) {
	f.filters = append(f.filters, filter)
	return f.apps, nil
}

func (f *fakeDirectory) ListAppUsers(_ context.Context, appID string) ([]directory.AppUser, error) {
	return f.appUsers[appID], nil
}

func (f *fakeDirectory) DeleteUser(_ context.Context, userID string) error {
	f.deletes = append(f.deletes, userID)
	return f.deleteErr[userID]
}

func user(id string, attrs ...string) directory.User {
	profile := directory.Profile{}
	for i := 0; i+1 < len(attrs); i += 2 {
		profile[attrs[i]] = attrs[i+1]
	}
	return directory.User{ID: id, Status: "ACTIVE", Profile: profile}
}

func httpError(status int) error {
	return fmt.Errorf("search groups: %w", &client.APIError{
		Method:     "GET",
		URL:        "https://example.okta.com/api/v1/groups",
		StatusCode: status,
		Class:      client.ErrorClassClient,
	})
}

func join(values []string) string {
	return strings.Join(values, ",")
}
