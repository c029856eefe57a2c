package directory

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/Sternrassler/idp-reports/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// API is the transport the service needs. *client.Client implements it.
type API interface {
	pagination.PageGetter
	URL(path string, query url.Values) string
	Delete(ctx context.Context, rawURL string) error
}

// Options configures a Service.
type Options struct {
	// PageLimit is sent as "limit" on the users list; 0 omits it.
	PageLimit int

	// OnError selects how a failed page ends a list walk.
	OnError pagination.ErrorPolicy
}

// Service lists and deletes directory objects.
type Service struct {
	api     API
	fetcher *pagination.Fetcher
	options Options
	logger  zerolog.Logger
}

// NewService creates a directory service over api.
func NewService(api API, options Options) *Service {
	return &Service{
		api:     api,
		fetcher: pagination.NewFetcher(api, pagination.Config{OnError: options.OnError}),
		options: options,
		logger:  log.With().Str("component", "directory").Logger(),
	}
}

// UserQuery narrows a users listing.
type UserQuery struct {
	// Search is an expression such as `status eq "ACTIVE"`.
	Search string

	// Filter is a filter expression; ignored when Search is set.
	Filter string
}

// UsersURL returns the first page URL of a users listing.
func (s *Service) UsersURL(q UserQuery) string {
	query := url.Values{}
	if s.options.PageLimit > 0 {
		query.Set("limit", strconv.Itoa(s.options.PageLimit))
	}
	switch {
	case q.Search != "":
		query.Set("search", q.Search)
	case q.Filter != "":
		query.Set("filter", q.Filter)
	}
	return s.api.URL("/api/v1/users", query)
}

// Users lazily walks the users listing.
func (s *Service) Users(ctx context.Context, q UserQuery) iter.Seq2[User, error] {
	return pagination.Decode[User](s.fetcher.All(ctx, s.UsersURL(q)))
}

// ListUsers returns every user matching q in fetch order.
func (s *Service) ListUsers(ctx context.Context, q UserQuery) ([]User, error) {
	users, err := collect(s.Users(ctx, q))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	s.logger.Debug().Int("count", len(users)).Msg("Listed users")
	return users, nil
}

// ListUserFactors returns the factors enrolled by a user.
func (s *Service) ListUserFactors(ctx context.Context, userID string) ([]Factor, error) {
	target := s.api.URL("/api/v1/users/"+url.PathEscape(userID)+"/factors", nil)
	factors, err := pagination.CollectAs[Factor](ctx, s.fetcher, target)
	if err != nil {
		return nil, fmt.Errorf("list factors of user %s: %w", userID, err)
	}
	return factors, nil
}

// SearchGroups returns groups whose name starts with q.
func (s *Service) SearchGroups(ctx context.Context, q string) ([]Group, error) {
	target := s.api.URL("/api/v1/groups", url.Values{"q": {q}})
	groups, err := pagination.CollectAs[Group](ctx, s.fetcher, target)
	if err != nil {
		return nil, fmt.Errorf("search groups %q: %w", q, err)
	}
	return groups, nil
}

// ListGroupMembers returns the members of a group.
func (s *Service) ListGroupMembers(ctx context.Context, groupID string) ([]User, error) {
	users, err := pagination.CollectAs[User](ctx, s.fetcher, s.groupMembersURL(groupID))
	if err != nil {
		return nil, fmt.Errorf("list members of group %s: %w", groupID, err)
	}
	return users, nil
}

// CountGroupMembers counts a group's members without keeping them.
func (s *Service) CountGroupMembers(ctx context.Context, groupID string) (int, error) {
	count := 0
	for _, err := range s.fetcher.All(ctx, s.groupMembersURL(groupID)) {
		if err != nil {
			return 0, fmt.Errorf("count members of group %s: %w", groupID, err)
		}
		count++
	}
	return count, nil
}

func (s *Service) groupMembersURL(groupID string) string {
	return s.api.URL("/api/v1/groups/"+url.PathEscape(groupID)+"/users", nil)
}

// ListApps returns application instances, optionally filtered, e.g.
// `status eq "ACTIVE"`.
func (s *Service) ListApps(ctx context.Context, filter string) ([]Application, error) {
	var query url.Values
	if filter != "" {
		query = url.Values{"filter": {filter}}
	}
	apps, err := pagination.CollectAs[Application](ctx, s.fetcher, s.api.URL("/api/v1/apps", query))
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	return apps, nil
}

// ListAppUsers returns the users assigned to an application.
func (s *Service) ListAppUsers(ctx context.Context, appID string) ([]AppUser, error) {
	target := s.api.URL("/api/v1/apps/"+url.PathEscape(appID)+"/users", nil)
	users, err := pagination.CollectAs[AppUser](ctx, s.fetcher, target)
	if err != nil {
		return nil, fmt.Errorf("list users of app %s: %w", appID, err)
	}
	return users, nil
}

// DeleteUser sends DELETE /api/v1/users/{id}?sendEmail=false. On an active
// user this deactivates; on a deactivated user it deletes permanently.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	target := s.api.URL("/api/v1/users/"+url.PathEscape(userID), url.Values{"sendEmail": {"false"}})
	if err := s.api.Delete(ctx, target); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	s.logger.Info().Str("user_id", userID).Msg("Delete request accepted")
	return nil
}

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
