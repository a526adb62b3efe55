package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"clubdesk/internal/entitlements"
	"clubdesk/internal/plans"
	"clubdesk/internal/snapshot"
)

type quotaSummary struct {
	Resource  plans.Resource `json:"resource"`
	Used      int64          `json:"used"`
	Limit     *int64         `json:"limit"`
	Remaining *int64         `json:"remaining"`
	CanAddOne bool           `json:"can_add_one"`
}

type evaluation struct {
	Plan         plans.Tier                   `json:"plan"`
	PlanName     string                       `json:"plan_name"`
	Status       entitlements.Status          `json:"status"`
	Trialing     bool                         `json:"trialing"`
	Expired      bool                         `json:"expired"`
	Active       bool                         `json:"active"`
	CanUpgrade   bool                         `json:"can_upgrade"`
	CanDowngrade bool                         `json:"can_downgrade"`
	Quotas       []quotaSummary               `json:"quotas"`
	Features     []entitlements.FeatureStatus `json:"features"`
}

func newEvaluateCommand() *cobra.Command {
	var (
		subscriptionPath string
		usagePath        string
		at               string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate entitlements for a subscription and usage snapshot",
		Long: `Evaluate reads a subscription document and an optional usage document,
validates both against their JSON schemas and prints the resulting
entitlements as JSON. A subscription document of null evaluates as an
organization without a subscription.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []entitlements.Option
			if at != "" {
				now, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				opts = append(opts, entitlements.WithClock(func() time.Time { return now }))
			}

			sub, err := readSubscriptionFile(subscriptionPath)
			if err != nil {
				return err
			}
			usage, err := readUsageFile(usagePath)
			if err != nil {
				return err
			}

			e := entitlements.ForSubscription(sub, &usage, opts...)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(evaluate(e))
		},
	}
	cmd.Flags().StringVar(&subscriptionPath, "subscription", "", "path to the subscription JSON document")
	cmd.Flags().StringVar(&usagePath, "usage", "", "path to the usage JSON document")
	cmd.Flags().StringVar(&at, "now", "", "evaluation time (RFC 3339), defaults to the current time")
	_ = cmd.MarkFlagRequired("subscription")
	return cmd
}

func readSubscriptionFile(path string) (*entitlements.Subscription, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sub, err := snapshot.ReadSubscription(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sub, nil
}

func readUsageFile(path string) (entitlements.Usage, error) {
	if path == "" {
		return entitlements.Usage{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return entitlements.Usage{}, err
	}
	defer f.Close()
	usage, err := snapshot.ReadUsage(f)
	if err != nil {
		return entitlements.Usage{}, fmt.Errorf("%s: %w", path, err)
	}
	return usage, nil
}

func evaluate(e *entitlements.Engine) evaluation {
	out := evaluation{
		Plan:         e.CurrentPlan(),
		PlanName:     plans.DisplayName(e.CurrentPlan()),
		Status:       e.SubscriptionStatus(),
		Trialing:     e.IsTrialing(),
		Expired:      e.IsExpired(),
		Active:       entitlements.RequireActive(e) == nil,
		CanUpgrade:   e.CanUpgrade(),
		CanDowngrade: e.CanDowngrade(),
		Features:     e.FeatureList(),
	}
	usage := e.Usage()
	plan := e.Plan()
	for _, res := range plans.Resources() {
		used := usage.Count(res)
		q := quotaSummary{Resource: res, Used: used, CanAddOne: e.CanAdd(res, used)}
		if limit, ok := plan.Limit(res); ok {
			remaining, _ := e.Remaining(res)
			q.Limit = &limit
			q.Remaining = &remaining
		}
		out.Quotas = append(out.Quotas, q)
	}
	return out
}
