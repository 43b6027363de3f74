package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/mediadesk/internal/formatter"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/services"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/urfave/cli/v3"
)

var (
	userFilters = []string{
		models.FilterAll, models.FilterActive, models.FilterExpired,
		models.FilterInactive, models.FilterExpiring, models.FilterCanceled,
	}
	userOrders = []string{models.SortEmailAsc, models.SortEmailDesc, models.SortNewest, models.SortOldest}
)

// UsersList prints users matching --search and --status, ordered by --sort. Stats cover the filtered listing.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	status, order := cmd.String("status"), cmd.String("sort")
	if !slices.Contains(userFilters, status) {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
	}
	if !slices.Contains(userOrders, order) {
		return fmt.Errorf("%w: unknown sort order %q", shared.ErrInvalidArgument, order)
	}

	api, err := r.client(ctx)
	if err != nil {
		return err
	}

	users, err := services.NewUsersClient(api).List(ctx)
	if err != nil {
		return err
	}

	filtered := models.FilterUsers(users, cmd.String("search"), status)
	models.SortUsers(filtered, order)
	r.logger.Debug("listed users", "total", len(users), "shown", len(filtered))

	data, err := formatter.Users(filtered, format)
	if err != nil {
		return err
	}
	return r.emit(cmd, data)
}

// UserDelete removes a user account after confirmation.
func (r *Runner) UserDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	if !cmd.Bool("yes") && !r.confirm(fmt.Sprintf("Delete user %s? This cannot be undone.", id)) {
		r.writePlain("Canceled\n")
		return nil
	}

	api, err := r.client(ctx)
	if err != nil {
		return err
	}
	if err := services.NewUsersClient(api).Delete(ctx, id); err != nil {
		return err
	}

	r.logger.Info("user deleted", "id", id)
	r.writePlain("✓ Deleted user %s\n", id)
	return nil
}
