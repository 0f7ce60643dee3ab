package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/okian/prebook/internal/adapters/repository"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/internal/domain/money"
)

const defaultListLimit = 20

func newOrdersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect pre-booking orders",
	}
	var (
		status string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "Print the most recent orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if status != "" && !model.IsValidStatus(status) {
				return fmt.Errorf("invalid status %q: must be one of %s", status, strings.Join(model.OrderStatuses, ", "))
			}
			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, db)

			orders, err := db.Orders().List(ctx, repository.OrderFilter{Status: status})
			if err != nil {
				return fmt.Errorf("list orders: %w", err)
			}
			if limit > 0 && len(orders) > limit {
				orders = orders[:limit]
			}
			renderOrders(cmd.OutOrStdout(), orders)
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "", "only orders with this status")
	list.Flags().IntVar(&limit, "limit", defaultListLimit, "maximum rows (0 for all)")
	cmd.AddCommand(list)
	return cmd
}

func newPlansCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect plans",
	}
	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Print plans in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, db)

			var active *bool
			if !all {
				t := true
				active = &t
			}
			plans, err := db.Plans().List(ctx, active)
			if err != nil {
				return fmt.Errorf("list plans: %w", err)
			}
			renderPlans(cmd.OutOrStdout(), plans)
			return nil
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include inactive plans")
	cmd.AddCommand(list)
	return cmd
}

func renderOrders(w io.Writer, orders []model.Order) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Order", "Customer", "Email", "Plan", "Total", "Status", "Payment", "Created"})
	table.SetAutoWrapText(false)
	for i := range orders {
		o := &orders[i]
		table.Append([]string{
			o.OrderNumber,
			o.FullName(),
			o.CustomerEmail,
			o.PlanName,
			money.FormatINR(o.TotalPaid),
			o.Status,
			o.PaymentStatus,
			o.CreatedAt.UTC().Format(time.DateTime),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "", "Orders", strconv.Itoa(len(orders))})
	table.Render()
}

func renderPlans(w io.Writer, plans []model.Plan) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Plan ID", "Name", "Speed", "Type", "Monthly", "Device", "Popular", "Active"})
	table.SetAutoWrapText(false)
	for i := range plans {
		p := &plans[i]
		table.Append([]string{
			strconv.FormatInt(p.DisplayOrder, 10),
			p.PlanID,
			p.Name,
			p.Speed,
			p.ServiceType,
			money.FormatINRMonthly(p.DiscountedPrice),
			money.FormatINR(p.DeviceCost),
			yesNo(p.IsPopular),
			yesNo(p.IsActive),
		})
	}
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
