package report

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Sternrassler/idp-reports/pkg/config"
	"github.com/Sternrassler/idp-reports/pkg/directory"
	"github.com/Sternrassler/idp-reports/pkg/roster"
)

// FastPass output columns.
const (
	ColLogin              = "login"
	ColUserType           = "user type"
	ColMobileEnrollments  = "mobile enrollments"
	ColDesktopEnrollments = "desktop enrollments"
)

// FastPass lists, for every user whose type is selected, the names of the
// devices enrolled with a signed_nonce factor, split into mobile and
// desktop by platform.
func FastPass(ctx context.Context, dir Directory, settings config.FastPassSettings) ([]roster.Row, error) {
	users, err := dir.ListUsers(ctx, directory.UserQuery{})
	if err != nil {
		return nil, fmt.Errorf("fastpass: %w", err)
	}

	var rows []roster.Row
	for _, u := range users {
		userType := u.Profile.String(directory.AttrUserType)
		if !slices.Contains(settings.UserTypes, userType) {
			continue
		}

		factors, err := dir.ListUserFactors(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("fastpass: %w", err)
		}

		var mobile, desktop []string
		for _, f := range factors {
			if f.FactorType != directory.FactorSignedNonce {
				continue
			}
			switch {
			case slices.Contains(settings.DesktopPlatforms, f.Profile.Platform):
				desktop = append(desktop, f.Profile.Name)
			case slices.Contains(settings.MobilePlatforms, f.Profile.Platform):
				mobile = append(mobile, f.Profile.Name)
			}
		}

		rows = append(rows, roster.NewRow(
			ColLogin, u.Login(),
			ColUserType, userType,
			ColMobileEnrollments, strings.Join(mobile, ", "),
			ColDesktopEnrollments, strings.Join(desktop, ", "),
		))
	}
	return rows, nil
}
