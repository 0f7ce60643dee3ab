package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/prebook/internal/adapters/filestore"
	"github.com/okian/prebook/internal/adapters/repository"
	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/pkg/logger"
)

// CSV file names under the data directory.
const (
	plansFile  = "plans.csv"
	adminsFile = "admin-users.csv"
	ordersFile = "orders.csv"
)

const featureSeparator = "|"

var (
	planColumns = []string{
		"plan_id", "name", "speed", "service_type", "description", "original_price", "discounted_price",
		"discount_percentage", "device_cost", "original_device_cost", "features", "is_popular", "is_active",
		"display_order",
	}
	orderColumns = []string{
		"order_number", "customer_first_name", "customer_last_name", "customer_email", "customer_phone",
		"customer_address", "customer_city", "customer_state", "customer_pincode", "service_type", "plan_id",
		"plan_name", "plan_speed", "plan_price", "device_price", "total_paid", "status", "payment_status",
		"tracking_number", "notes", "created_at", "updated_at", "shipped_at", "delivered_at",
	}
)

// transferResult counts rows per table.
type transferResult struct {
	Plans, Admins, Orders int
	Skipped               int
}

func newImportCommand(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load plans.csv, admin-users.csv and orders.csv into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, db)
			res, err := importCSV(ctx, filestore.New(a.dataDir(dir)), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d plans, %d admins, %d orders (%d skipped)\n",
				res.Plans, res.Admins, res.Orders, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "CSV directory (defaults to data_dir)")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write orders.csv and plans.csv from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, db)
			res, err := exportCSV(ctx, filestore.New(a.dataDir(dir)), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d plans, %d orders\n", res.Plans, res.Orders)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "CSV directory (defaults to data_dir)")
	return cmd
}

func (a *app) dataDir(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.DataDir
}

// importCSV inserts every row whose natural key is not in the store yet.
func importCSV(ctx context.Context, fs *filestore.Store, db *repository.DB) (transferResult, error) {
	var res transferResult
	log := logger.Named("import")

	rows, err := fs.Read(plansFile)
	if err != nil {
		return res, err
	}
	for i, row := range rows {
		p, err := planFromRow(row)
		if err != nil {
			return res, fmt.Errorf("%s row %d: %w", plansFile, i+1, err)
		}
		switch err := db.Plans().Create(ctx, &p); {
		case errors.Is(err, repository.ErrDuplicate):
			res.Skipped++
		case err != nil:
			return res, err
		default:
			res.Plans++
		}
	}

	if rows, err = fs.Read(adminsFile); err != nil {
		return res, err
	}
	for i, row := range rows {
		u, err := adminFromRow(row)
		if err != nil {
			return res, fmt.Errorf("%s row %d: %w", adminsFile, i+1, err)
		}
		switch err := db.Admins().Create(ctx, &u); {
		case errors.Is(err, repository.ErrDuplicate):
			res.Skipped++
		case err != nil:
			return res, err
		default:
			res.Admins++
		}
	}

	if rows, err = fs.Read(ordersFile); err != nil {
		return res, err
	}
	for i, row := range rows {
		o, err := orderFromRow(row)
		if err != nil {
			return res, fmt.Errorf("%s row %d: %w", ordersFile, i+1, err)
		}
		switch err := db.Orders().Create(ctx, &o); {
		case errors.Is(err, repository.ErrDuplicate):
			res.Skipped++
		case err != nil:
			return res, err
		default:
			res.Orders++
		}
	}

	log.Info(ctx, "csv import finished",
		logger.String("dir", fs.Dir()),
		logger.Int("plans", res.Plans),
		logger.Int("admins", res.Admins),
		logger.Int("orders", res.Orders),
		logger.Int("skipped", res.Skipped))
	return res, nil
}

// exportCSV replaces plans.csv and orders.csv with the store contents.
func exportCSV(ctx context.Context, fs *filestore.Store, db *repository.DB) (transferResult, error) {
	var res transferResult

	plans, err := db.Plans().List(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("list plans: %w", err)
	}
	rows := make([]filestore.Row, 0, len(plans))
	for i := range plans {
		rows = append(rows, planRow(&plans[i]))
	}
	if err := fs.Write(plansFile, rows, planColumns...); err != nil {
		return res, err
	}
	res.Plans = len(rows)

	orders, err := db.Orders().All(ctx, time.Time{}, time.Time{})
	if err != nil {
		return res, fmt.Errorf("list orders: %w", err)
	}
	rows = make([]filestore.Row, 0, len(orders))
	for i := range orders {
		rows = append(rows, orderRow(&orders[i]))
	}
	if err := fs.Write(ordersFile, rows, orderColumns...); err != nil {
		return res, err
	}
	res.Orders = len(rows)
	return res, nil
}

func planFromRow(r filestore.Row) (model.Plan, error) {
	p := model.Plan{
		PlanID:      r["plan_id"],
		Name:        r["name"],
		Speed:       r["speed"],
		ServiceType: r["service_type"],
		Description: r["description"],
		Features:    splitFeatures(r["features"]),
		IsPopular:   parseBool(r["is_popular"], false),
		IsActive:    parseBool(r["is_active"], true),
	}
	if p.PlanID == "" || p.Name == "" {
		return p, errors.New("plan_id and name are required")
	}
	ints := []struct {
		col string
		dst *int64
	}{
		{"original_price", &p.OriginalPrice},
		{"discounted_price", &p.DiscountedPrice},
		{"discount_percentage", &p.DiscountPercentage},
		{"device_cost", &p.DeviceCost},
		{"original_device_cost", &p.OriginalDeviceCost},
		{"display_order", &p.DisplayOrder},
	}
	for _, f := range ints {
		n, err := parseInt(r[f.col])
		if err != nil {
			return p, fmt.Errorf("%s: %w", f.col, err)
		}
		*f.dst = n
	}
	return p, nil
}

func planRow(p *model.Plan) filestore.Row {
	return filestore.Row{
		"plan_id":              p.PlanID,
		"name":                 p.Name,
		"speed":                p.Speed,
		"service_type":         p.ServiceType,
		"description":          p.Description,
		"original_price":       strconv.FormatInt(p.OriginalPrice, 10),
		"discounted_price":     strconv.FormatInt(p.DiscountedPrice, 10),
		"discount_percentage":  strconv.FormatInt(p.DiscountPercentage, 10),
		"device_cost":          strconv.FormatInt(p.DeviceCost, 10),
		"original_device_cost": strconv.FormatInt(p.OriginalDeviceCost, 10),
		"features":             strings.Join(p.Features, featureSeparator),
		"is_popular":           strconv.FormatBool(p.IsPopular),
		"is_active":            strconv.FormatBool(p.IsActive),
		"display_order":        strconv.FormatInt(p.DisplayOrder, 10),
	}
}

// adminFromRow hashes plaintext password_hash values before they are stored.
func adminFromRow(r filestore.Row) (model.AdminUser, error) {
	u := model.AdminUser{
		Username: r["username"],
		Email:    r["email"],
		FullName: r["full_name"],
		Role:     r["role"],
		IsActive: parseBool(r["is_active"], true),
	}
	pw := r["password_hash"]
	if u.Username == "" || u.Email == "" || pw == "" {
		return u, errors.New("username, email and password_hash are required")
	}
	if !auth.IsHashed(pw) {
		h, err := auth.HashPassword(pw)
		if err != nil {
			return u, err
		}
		pw = h
	}
	u.PasswordHash = pw
	return u, nil
}

func orderFromRow(r filestore.Row) (model.Order, error) {
	o := model.Order{
		OrderNumber:       r["order_number"],
		CustomerFirstName: r["customer_first_name"],
		CustomerLastName:  r["customer_last_name"],
		CustomerEmail:     r["customer_email"],
		CustomerPhone:     r["customer_phone"],
		CustomerAddress:   r["customer_address"],
		CustomerCity:      r["customer_city"],
		CustomerState:     model.StringPtr(r["customer_state"]),
		CustomerPincode:   r["customer_pincode"],
		ServiceType:       r["service_type"],
		PlanID:            r["plan_id"],
		PlanName:          r["plan_name"],
		PlanSpeed:         r["plan_speed"],
		Status:            r["status"],
		PaymentStatus:     r["payment_status"],
		TrackingNumber:    model.StringPtr(r["tracking_number"]),
		Notes:             model.StringPtr(r["notes"]),
	}
	if o.OrderNumber == "" {
		return o, errors.New("order_number is required")
	}
	if o.Status != "" && !model.IsValidStatus(o.Status) {
		return o, fmt.Errorf("invalid status %q", o.Status)
	}
	if o.PaymentStatus != "" && !model.IsValidPaymentStatus(o.PaymentStatus) {
		return o, fmt.Errorf("invalid payment_status %q", o.PaymentStatus)
	}
	var err error
	if o.PlanPrice, err = parseInt(r["plan_price"]); err != nil {
		return o, fmt.Errorf("plan_price: %w", err)
	}
	if o.DevicePrice, err = parseInt(r["device_price"]); err != nil {
		return o, fmt.Errorf("device_price: %w", err)
	}
	if o.TotalPaid, err = parseInt(r["total_paid"]); err != nil {
		return o, fmt.Errorf("total_paid: %w", err)
	}
	if o.CreatedAt, err = parseTime(r["created_at"]); err != nil {
		return o, fmt.Errorf("created_at: %w", err)
	}
	if o.UpdatedAt, err = parseTime(r["updated_at"]); err != nil {
		return o, fmt.Errorf("updated_at: %w", err)
	}
	if o.ShippedAt, err = parseTimePtr(r["shipped_at"]); err != nil {
		return o, fmt.Errorf("shipped_at: %w", err)
	}
	if o.DeliveredAt, err = parseTimePtr(r["delivered_at"]); err != nil {
		return o, fmt.Errorf("delivered_at: %w", err)
	}
	return o, nil
}

func orderRow(o *model.Order) filestore.Row {
	return filestore.Row{
		"order_number":        o.OrderNumber,
		"customer_first_name": o.CustomerFirstName,
		"customer_last_name":  o.CustomerLastName,
		"customer_email":      o.CustomerEmail,
		"customer_phone":      o.CustomerPhone,
		"customer_address":    o.CustomerAddress,
		"customer_city":       o.CustomerCity,
		"customer_state":      model.Deref(o.CustomerState),
		"customer_pincode":    o.CustomerPincode,
		"service_type":        o.ServiceType,
		"plan_id":             o.PlanID,
		"plan_name":           o.PlanName,
		"plan_speed":          o.PlanSpeed,
		"plan_price":          strconv.FormatInt(o.PlanPrice, 10),
		"device_price":        strconv.FormatInt(o.DevicePrice, 10),
		"total_paid":          strconv.FormatInt(o.TotalPaid, 10),
		"status":              o.Status,
		"payment_status":      o.PaymentStatus,
		"tracking_number":     model.Deref(o.TrackingNumber),
		"notes":               model.Deref(o.Notes),
		"created_at":          formatTime(&o.CreatedAt),
		"updated_at":          formatTime(&o.UpdatedAt),
		"shipped_at":          formatTime(o.ShippedAt),
		"delivered_at":        formatTime(o.DeliveredAt),
	}
}

func splitFeatures(s string) []string {
	out := []string{}
	for _, f := range strings.Split(s, featureSeparator) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// parseBool accepts true/false and 1/0. Blank gives def.
func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

// parseTime leaves blanks zero so the store stamps them.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func parseTimePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
