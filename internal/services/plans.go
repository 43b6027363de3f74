package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
)

const plansPath = "/subscription-plans/admin/subscription-plans"

// PlansClient manages subscription plans.
type PlansClient struct {
	api *APIService
}

func NewPlansClient(api *APIService) *PlansClient {
	return &PlansClient{api: api}
}

// List returns all plans, active or not.
func (c *PlansClient) List(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	if err := c.api.call(ctx, http.MethodGet, plansPath, nil, &plans); err != nil {
		return nil, fmt.Errorf("failed to list subscription plans: %w", err)
	}
	return plans, nil
}

// Get finds one plan by ID.
func (c *PlansClient) Get(ctx context.Context, id string) (models.SubscriptionPlan, error) {
	plans, err := c.List(ctx)
	if err != nil {
		return models.SubscriptionPlan{}, err
	}
	for _, p := range plans {
		if p.ID == id {
			return p, nil
		}
	}
	return models.SubscriptionPlan{}, fmt.Errorf("%w: %s", shared.ErrPlanNotFound, id)
}

// Save creates plan when it has no ID and updates it otherwise.
func (c *PlansClient) Save(ctx context.Context, plan models.SubscriptionPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.Features == nil {
		plan.Features = []string{}
	}

	if plan.ID == "" {
		return c.api.call(ctx, http.MethodPost, plansPath, plan, nil)
	}
	return c.api.call(ctx, http.MethodPut, planPath(plan.ID, ""), plan, nil)
}

// Deactivate hides a plan from subscribers. The API models this as DELETE.
func (c *PlansClient) Deactivate(ctx context.Context, id string) error {
	return c.api.call(ctx, http.MethodDelete, planPath(id, ""), nil, nil)
}

// Activate makes a deactivated plan available again.
func (c *PlansClient) Activate(ctx context.Context, id string) error {
	return c.api.call(ctx, http.MethodPut, planPath(id, "activate"), nil, nil)
}

// SetDefault marks id as the plan offered by default.
func (c *PlansClient) SetDefault(ctx context.Context, id string) error {
	return c.api.call(ctx, http.MethodPut, planPath(id, "set-default"), nil, nil)
}

func planPath(id, action string) string {
	path := plansPath + "/" + url.PathEscape(id)
	if action != "" {
		path += "/" + action
	}
	return path
}
