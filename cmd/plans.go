package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mediadesk/internal/formatter"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/services"
	"github.com/urfave/cli/v3"
)

func (r *Runner) plans(ctx context.Context) (*services.PlansClient, error) {
	api, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewPlansClient(api), nil
}

// PlansList prints every plan, active or not.
func (r *Runner) PlansList(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	client, err := r.plans(ctx)
	if err != nil {
		return err
	}

	plans, err := client.List(ctx)
	if err != nil {
		return err
	}

	data, err := formatter.Plans(plans, format)
	if err != nil {
		return err
	}
	return r.emit(cmd, data)
}

// PlanShow prints one plan.
func (r *Runner) PlanShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	client, err := r.plans(ctx)
	if err != nil {
		return err
	}

	plan, err := client.Get(ctx, id)
	if err != nil {
		return err
	}

	data, err := formatter.Plan(plan, format)
	if err != nil {
		return err
	}
	return r.emit(cmd, data)
}

// PlanCreate adds a plan starting from the form defaults.
func (r *Runner) PlanCreate(ctx context.Context, cmd *cli.Command) error {
	client, err := r.plans(ctx)
	if err != nil {
		return err
	}

	plan := models.NewSubscriptionPlan("")
	applyPlanFlags(cmd, plan)

	if err := client.Save(ctx, *plan); err != nil {
		return err
	}

	r.logger.Info("plan created", "title", plan.Title)
	r.writePlain("✓ Created plan %s\n", plan.Title)
	return nil
}

// PlanUpdate changes the given fields of an existing plan.
func (r *Runner) PlanUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	client, err := r.plans(ctx)
	if err != nil {
		return err
	}

	plan, err := client.Get(ctx, id)
	if err != nil {
		return err
	}
	applyPlanFlags(cmd, &plan)

	if err := client.Save(ctx, plan); err != nil {
		return err
	}

	r.logger.Info("plan updated", "id", id)
	r.writePlain("✓ Updated plan %s\n", plan.Title)
	return nil
}

// PlanActivate makes a deactivated plan available again.
func (r *Runner) PlanActivate(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	client, err := r.plans(ctx)
	if err != nil {
		return err
	}
	if err := client.Activate(ctx, id); err != nil {
		return err
	}

	r.logger.Info("plan activated", "id", id)
	r.writePlain("✓ Activated plan %s\n", id)
	return nil
}

// PlanDeactivate hides a plan from subscribers after confirmation.
func (r *Runner) PlanDeactivate(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	if !cmd.Bool("yes") && !r.confirm(fmt.Sprintf("Deactivate plan %s?", id)) {
		r.writePlain("Canceled\n")
		return nil
	}

	client, err := r.plans(ctx)
	if err != nil {
		return err
	}
	if err := client.Deactivate(ctx, id); err != nil {
		return err
	}

	r.logger.Info("plan deactivated", "id", id)
	r.writePlain("✓ Deactivated plan %s\n", id)
	return nil
}

// PlanSetDefault marks a plan as the default offer.
func (r *Runner) PlanSetDefault(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	client, err := r.plans(ctx)
	if err != nil {
		return err
	}
	if err := client.SetDefault(ctx, id); err != nil {
		return err
	}

	r.logger.Info("default plan set", "id", id)
	r.writePlain("✓ %s is now the default plan\n", id)
	return nil
}

// applyPlanFlags copies the flags that were set onto plan.
func applyPlanFlags(cmd *cli.Command, plan *models.SubscriptionPlan) {
	strs := map[string]*string{
		"title":             &plan.Title,
		"description":       &plan.Description,
		"ad-supported":      &plan.AdSupported,
		"audio-file-type":   &plan.AudioFileType,
		"offline-downloads": &plan.OfflineDownloads,
		"binaural-tracks":   &plan.BinauralTracks,
		"soundscape-tracks": &plan.SoundscapeTracks,
		"dynamic-audio":     &plan.DynamicAudioFeatures,
		"custom-requests":   &plan.CustomTrackRequests,
		"stripe-monthly":    &plan.StripeMonthlyPriceID,
		"stripe-yearly":     &plan.StripeYearlyPriceID,
	}
	for name, field := range strs {
		if cmd.IsSet(name) {
			*field = cmd.String(name)
		}
	}

	if cmd.IsSet("monthly") {
		plan.MonthlyCost = cmd.Float("monthly")
	}
	if cmd.IsSet("annual") {
		plan.AnnualCost = cmd.Float("annual")
	}
	if cmd.IsSet("features") {
		plan.Features = models.ParseFeatures(cmd.String("features"))
	}
}
