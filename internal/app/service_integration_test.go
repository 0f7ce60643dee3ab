package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func codeOf(err error) string {
	var e *service.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func TestOrders_Create(t *testing.T) {
	Convey("Given a started service", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("A valid pre-booking is normalised, stored and confirmed by email", func() {
			o, sent, err := f.svc.CreateOrder(ctx, validInput(), "")
			So(err, ShouldBeNil)
			So(sent, ShouldBeTrue)
			So(o.ID, ShouldBeGreaterThan, 0)
			So(o.OrderNumber, ShouldStartWith, "SL-IN-")
			So(o.CustomerFirstName, ShouldEqual, "Asha")
			So(o.CustomerEmail, ShouldEqual, "asha.rao@example.com")
			So(o.Status, ShouldEqual, model.StatusPending)
			So(o.PaymentStatus, ShouldEqual, model.PaymentPending)
			So(o.Notes, ShouldBeNil)

			mails := f.mailer.waitFor(1)
			So(mails, ShouldHaveLength, 1)
			So(mails[0].To, ShouldEqual, "asha.rao@example.com")
			So(mails[0].Subject, ShouldEqual, "Order Confirmation - Starlink India #"+o.OrderNumber)
			So(mails[0].Body, ShouldContainSubstring, "₹33,000")
			So(mails[0].Body, ShouldContainSubstring, "₹3,750/month")
			So(mails[0].Body, ShouldContainSubstring, "12 MG Road, Bengaluru, Karnataka, 560001")
		})

		Convey("Validation rejects bad input with stable codes", func() {
			cases := map[string]func(*service.OrderInput){
				service.CodeMissingFields:      func(in *service.OrderInput) { in.CustomerCity = "  " },
				service.CodeInvalidEmail:       func(in *service.OrderInput) { in.CustomerEmail = "asha@example" },
				service.CodeInvalidPhone:       func(in *service.OrderInput) { in.CustomerPhone = "98765" },
				service.CodeInvalidServiceType: func(in *service.OrderInput) { in.ServiceType = "business" },
				service.CodeStateRequired:      func(in *service.OrderInput) { in.CustomerState = "" },
			}
			for code, mutate := range cases {
				in := validInput()
				mutate(&in)
				_, _, err := f.svc.CreateOrder(ctx, in, "")
				So(errors.Is(err, service.ErrInvalid), ShouldBeTrue)
				So(codeOf(err), ShouldEqual, code)
			}
		})

		Convey("Padded phone and email are rejected rather than trimmed", func() {
			in := validInput()
			in.CustomerPhone = " 9876543210 "
			_, _, err := f.svc.CreateOrder(ctx, in, "")
			So(codeOf(err), ShouldEqual, service.CodeInvalidPhone)

			in = validInput()
			in.CustomerEmail = " asha.rao@example.com"
			_, _, err = f.svc.CreateOrder(ctx, in, "")
			So(codeOf(err), ShouldEqual, service.CodeInvalidEmail)
		})

		Convey("Roam orders do not need a state", func() {
			in := validInput()
			in.ServiceType = model.ServiceRoam
			in.CustomerState = ""
			o, _, err := f.svc.CreateOrder(ctx, in, "")
			So(err, ShouldBeNil)
			So(o.CustomerState, ShouldBeNil)
		})

		Convey("A repeated idempotency key is a conflict", func() {
			_, _, err := f.svc.CreateOrder(ctx, validInput(), "key-1")
			So(err, ShouldBeNil)
			_, _, err = f.svc.CreateOrder(ctx, validInput(), "key-1")
			So(errors.Is(err, service.ErrConflict), ShouldBeTrue)
			So(codeOf(err), ShouldEqual, service.CodeDuplicateRequest)
		})

		Convey("A rejected submission does not consume its key", func() {
			bad := validInput()
			bad.CustomerPhone = "1"
			_, _, err := f.svc.CreateOrder(ctx, bad, "key-2")
			So(codeOf(err), ShouldEqual, service.CodeInvalidPhone)
			_, _, err = f.svc.CreateOrder(ctx, validInput(), "key-2")
			So(err, ShouldBeNil)
		})
	})
}

func TestOrders_LookupAndList(t *testing.T) {
	Convey("Given three orders", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		var created []model.Order
		for i, email := range []string{"a@x.in", "b@x.in", "a@x.in"} {
			in := validInput()
			in.CustomerEmail = email
			in.TotalPaid = int64(1000 * (i + 1))
			f.clock.Set(f.clock.Now().Add(time.Minute))
			o, _, err := f.svc.CreateOrder(ctx, in, "")
			So(err, ShouldBeNil)
			created = append(created, o)
		}

		Convey("Lookup by number wins over email", func() {
			got, err := f.svc.LookupOrders(ctx, "a@x.in", created[1].OrderNumber)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].CustomerEmail, ShouldEqual, "b@x.in")
		})

		Convey("Lookup by email is case-insensitive", func() {
			got, err := f.svc.LookupOrders(ctx, " A@X.IN ", "")
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
		})

		Convey("An unknown number yields no orders", func() {
			got, err := f.svc.LookupOrders(ctx, "", "SL-IN-0-NOPE")
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("Lookup without parameters is rejected", func() {
			_, err := f.svc.LookupOrders(ctx, "", " ")
			So(codeOf(err), ShouldEqual, service.CodeMissingParams)
		})

		Convey("The admin list sorts, filters and pages in memory", func() {
			page, err := f.svc.ListOrders(ctx, types.OrderQuery{SortBy: "totalPaid", SortOrder: "asc", Limit: 2})
			So(err, ShouldBeNil)
			So(page.Total, ShouldEqual, 3)
			So(page.Items, ShouldHaveLength, 2)
			So(page.Items[0].TotalPaid, ShouldEqual, int64(1000))

			page, err = f.svc.ListOrders(ctx, types.OrderQuery{Search: "B@X", Limit: 10})
			So(err, ShouldBeNil)
			So(page.Total, ShouldEqual, 1)

			page, err = f.svc.ListOrders(ctx, types.OrderQuery{SortBy: "bogus"})
			So(err, ShouldBeNil)
			So(page.Items[0].ID, ShouldEqual, created[2].ID)
			So(page.Limit, ShouldEqual, types.DefaultOrderLimit)
		})
	})
}

func TestOrders_UpdateDeleteStats(t *testing.T) {
	Convey("Given an order", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		o, _, err := f.svc.CreateOrder(ctx, validInput(), "")
		So(err, ShouldBeNil)
		f.mailer.waitFor(1)

		Convey("Shipping stamps shippedAt and sends the notification", func() {
			shipped := model.StatusShipped
			u, err := f.svc.UpdateOrder(ctx, o.ID, service.OrderUpdate{Status: &shipped})
			So(err, ShouldBeNil)
			So(u.Status, ShouldEqual, model.StatusShipped)
			So(u.ShippedAt, ShouldNotBeNil)

			mails := f.mailer.waitFor(2)
			So(mails, ShouldHaveLength, 2)
			So(mails[1].Body, ShouldContainSubstring, "Will be updated soon")

			Convey("And delivering stamps deliveredAt without another email", func() {
				delivered := model.StatusDelivered
				d, err := f.svc.UpdateOrder(ctx, o.ID, service.OrderUpdate{Status: &delivered})
				So(err, ShouldBeNil)
				So(d.DeliveredAt, ShouldNotBeNil)
				time.Sleep(50 * time.Millisecond)
				So(f.mailer.Sent(), ShouldHaveLength, 2)
			})
		})

		Convey("Invalid statuses are rejected with the allowed list", func() {
			lost := "lost"
			_, err := f.svc.UpdateOrder(ctx, o.ID, service.OrderUpdate{Status: &lost})
			So(codeOf(err), ShouldEqual, service.CodeInvalidStatus)
			So(err.Error(), ShouldEqual, "Invalid status. Must be one of: pending, confirmed, shipped, delivered, cancelled")
		})

		Convey("Unknown orders are not found", func() {
			_, err := f.svc.UpdateOrder(ctx, 999, service.OrderUpdate{})
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			_, err = f.svc.DeleteOrder(ctx, 999)
			So(codeOf(err), ShouldEqual, service.CodeOrderNotFound)
		})

		Convey("Deleting returns the removed order", func() {
			d, err := f.svc.DeleteOrder(ctx, o.ID)
			So(err, ShouldBeNil)
			So(d.OrderNumber, ShouldEqual, o.OrderNumber)
			_, err = f.svc.GetOrder(ctx, o.ID)
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})

		Convey("Stats summarise revenue and statuses", func() {
			f.clock.Set(time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC))
			in := validInput()
			in.PlanID, in.PlanName, in.TotalPaid = "basic", "Basic", 20000
			_, _, err := f.svc.CreateOrder(ctx, in, "")
			So(err, ShouldBeNil)
			f.clock.Set(time.Date(2026, time.May, 20, 9, 0, 0, 0, time.UTC))

			st, err := f.svc.OrderStats(ctx, time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(st.TotalOrders, ShouldEqual, 2)
			So(st.TotalRevenue, ShouldEqual, 53000.0)
			So(st.MonthlyRevenue, ShouldEqual, 33000.0)
			So(st.AverageOrderValue, ShouldEqual, 26500.0)
			So(st.OrdersByStatus, ShouldHaveLength, 5)
			So(st.OrdersByPaymentStatus.Pending, ShouldEqual, 2)
			So(st.RevenueByPlan, ShouldHaveLength, 2)
			So(st.RevenueByPlan[0].PlanID, ShouldEqual, "basic")

			start, err := service.ParseDateBound("2026-05-01", false)
			So(err, ShouldBeNil)
			end, err := service.ParseDateBound("2026-05-15", true)
			So(err, ShouldBeNil)
			st, err = f.svc.OrderStats(ctx, start, end)
			So(err, ShouldBeNil)
			So(st.TotalOrders, ShouldEqual, 1)

			_, err = service.ParseDateBound("yesterday", false)
			So(codeOf(err), ShouldEqual, service.CodeInvalidDate)
		})
	})
}

func TestPlans(t *testing.T) {
	Convey("Given the seeded plans", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("The public list shows active plans in display order", func() {
			plans, err := f.svc.ActivePlans(ctx)
			So(err, ShouldBeNil)
			So(plans, ShouldHaveLength, 3)
			So(plans[0].PlanID, ShouldEqual, "basic")
		})

		Convey("Creating requires planId, name and speed", func() {
			name := "Roam"
			_, err := f.svc.CreatePlan(ctx, service.PlanPatch{Name: &name})
			So(codeOf(err), ShouldEqual, service.CodeMissingFields)
		})

		Convey("Creating applies defaults and rejects duplicate ids", func() {
			id, name, speed := "roam", "Roam", "Up to 100 Mbps"
			p, err := f.svc.CreatePlan(ctx, service.PlanPatch{PlanID: &id, Name: &name, Speed: &speed})
			So(err, ShouldBeNil)
			So(p.IsActive, ShouldBeTrue)
			So(p.Features, ShouldResemble, []string{})
			So(p.OriginalPrice, ShouldEqual, int64(0))

			_, err = f.svc.CreatePlan(ctx, service.PlanPatch{PlanID: &id, Name: &name, Speed: &speed})
			So(codeOf(err), ShouldEqual, service.CodeDuplicatePlanID)
		})

		Convey("Updating changes only the given fields", func() {
			plans, _ := f.svc.ActivePlans(ctx)
			price := int64(1999)
			p, err := f.svc.UpdatePlan(ctx, plans[0].ID, service.PlanPatch{DiscountedPrice: &price})
			So(err, ShouldBeNil)
			So(p.DiscountedPrice, ShouldEqual, price)
			So(p.Name, ShouldEqual, plans[0].Name)
		})

		Convey("Deleting soft-deactivates unless hard is set", func() {
			plans, _ := f.svc.ActivePlans(ctx)
			p, err := f.svc.DeletePlan(ctx, plans[0].ID, false)
			So(err, ShouldBeNil)
			So(p.IsActive, ShouldBeFalse)
			active, _ := f.svc.ActivePlans(ctx)
			So(active, ShouldHaveLength, 2)

			_, err = f.svc.DeletePlan(ctx, plans[0].ID, true)
			So(err, ShouldBeNil)
			_, err = f.svc.GetPlan(ctx, plans[0].ID)
			So(codeOf(err), ShouldEqual, service.CodePlanNotFound)
		})

		Convey("The admin list filters and sorts", func() {
			inactive := false
			page, err := f.svc.ListPlans(ctx, types.PlanQuery{IsActive: &inactive})
			So(err, ShouldBeNil)
			So(page.Total, ShouldEqual, 0)

			page, err = f.svc.ListPlans(ctx, types.PlanQuery{SortBy: "originalPrice", SortOrder: "desc"})
			So(err, ShouldBeNil)
			So(page.Items[0].PlanID, ShouldEqual, "premium")
			So(page.Limit, ShouldEqual, types.DefaultPlanLimit)
		})
	})
}

func TestTemplates(t *testing.T) {
	Convey("Given the default templates", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("Both defaults exist and are searchable", func() {
			page, err := f.svc.ListTemplates(ctx, types.TemplateQuery{Search: "SHIPPED"})
			So(err, ShouldBeNil)
			So(page.Total, ShouldEqual, 1)
			So(page.Items[0].TemplateName, ShouldEqual, "shipping_notification")
		})

		Convey("Creating checks required fields in order", func() {
			empty := " "
			_, err := f.svc.CreateTemplate(ctx, service.TemplatePatch{})
			So(codeOf(err), ShouldEqual, service.CodeMissingTemplateName)
			name := "welcome"
			_, err = f.svc.CreateTemplate(ctx, service.TemplatePatch{TemplateName: &name, TemplateSubject: &empty})
			So(codeOf(err), ShouldEqual, service.CodeMissingTemplateSubject)
		})

		Convey("Creating extracts variables and previews render them", func() {
			name, subject, body := " welcome ", "Hi {{firstName}}", "<p>{{firstName}} / {{city}}</p>"
			tpl, err := f.svc.CreateTemplate(ctx, service.TemplatePatch{
				TemplateName: &name, TemplateSubject: &subject, TemplateBody: &body,
			})
			So(err, ShouldBeNil)
			So(tpl.TemplateName, ShouldEqual, "welcome")
			So(tpl.Variables, ShouldResemble, []string{"firstName", "city"})
			So(tpl.IsActive, ShouldBeTrue)

			r, err := f.svc.PreviewTemplate(ctx, tpl.ID, map[string]string{"firstName": "Asha"})
			So(err, ShouldBeNil)
			So(r.Subject, ShouldEqual, "Hi Asha")
			So(r.Body, ShouldEqual, "<p>Asha / {{city}}</p>")
			So(r.Unresolved, ShouldResemble, []string{"city"})

			_, err = f.svc.CreateTemplate(ctx, service.TemplatePatch{
				TemplateName: &name, TemplateSubject: &subject, TemplateBody: &body,
			})
			So(codeOf(err), ShouldEqual, service.CodeDuplicateTemplateName)

			Convey("Renaming onto an existing name is rejected", func() {
				taken := "order_confirmation"
				_, err := f.svc.UpdateTemplate(ctx, tpl.ID, service.TemplatePatch{TemplateName: &taken})
				So(codeOf(err), ShouldEqual, service.CodeDuplicateTemplateName)
			})

			Convey("Deactivating stops SendEmail using it", func() {
				off := false
				_, err := f.svc.UpdateTemplate(ctx, tpl.ID, service.TemplatePatch{IsActive: &off})
				So(err, ShouldBeNil)
				So(f.svc.SendEmail(ctx, "a@b.in", "welcome", nil), ShouldBeFalse)
			})

			Convey("Deleting returns the template", func() {
				d, err := f.svc.DeleteTemplate(ctx, tpl.ID)
				So(err, ShouldBeNil)
				So(d.TemplateName, ShouldEqual, "welcome")
				_, err = f.svc.GetTemplate(ctx, tpl.ID)
				So(codeOf(err), ShouldEqual, service.CodeTemplateNotFound)
			})
		})
	})
}

func TestAdminAuth(t *testing.T) {
	Convey("Given the seeded admin", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("Login requires both fields", func() {
			_, _, err := f.svc.Login(ctx, " ", "x")
			So(codeOf(err), ShouldEqual, service.CodeMissingUsername)
			_, _, err = f.svc.Login(ctx, "admin", "")
			So(codeOf(err), ShouldEqual, service.CodeMissingPassword)
		})

		Convey("Wrong passwords and unknown users look the same", func() {
			_, _, err := f.svc.Login(ctx, "admin", "nope")
			So(errors.Is(err, service.ErrUnauthorized), ShouldBeTrue)
			So(codeOf(err), ShouldEqual, service.CodeInvalidCredentials)
			_, _, err = f.svc.Login(ctx, "ghost", "admin123")
			So(codeOf(err), ShouldEqual, service.CodeInvalidCredentials)
		})

		Convey("A successful login issues a token that resolves to the admin", func() {
			token, admin, err := f.svc.Login(ctx, " admin ", "admin123")
			So(err, ShouldBeNil)
			So(strings.Count(token, "."), ShouldEqual, 2)
			So(admin.Role, ShouldEqual, model.RoleSuperAdmin)

			view, err := f.svc.Session(ctx, token)
			So(err, ShouldBeNil)
			So(view.Username, ShouldEqual, "admin")

			claims, err := f.svc.Authorize(ctx, token)
			So(err, ShouldBeNil)
			So(claims.UserID, ShouldEqual, admin.ID)

			Convey("Changing the password checks the current one", func() {
				err := f.svc.ChangePassword(ctx, admin.ID, "wrong", "secret1")
				So(codeOf(err), ShouldEqual, service.CodeIncorrectPassword)
				err = f.svc.ChangePassword(ctx, admin.ID, "admin123", "short")
				So(codeOf(err), ShouldEqual, service.CodePasswordTooShort)
				err = f.svc.ChangePassword(ctx, 999, "admin123", "secret1")
				So(codeOf(err), ShouldEqual, service.CodeUserNotFound)

				So(f.svc.ChangePassword(ctx, admin.ID, "admin123", "secret1"), ShouldBeNil)
				_, _, err = f.svc.Login(ctx, "admin", "secret1")
				So(err, ShouldBeNil)
			})
		})

		Convey("Bad tokens are rejected with distinct codes", func() {
			_, err := f.svc.Session(ctx, "")
			So(codeOf(err), ShouldEqual, service.CodeNoToken)
			_, err = f.svc.Session(ctx, "not.a.token")
			So(codeOf(err), ShouldEqual, service.CodeInvalidToken)
			_, err = f.svc.Authorize(ctx, "not.a.token")
			So(codeOf(err), ShouldEqual, service.CodeUnauthorized)
			_, err = f.svc.VerifyToken(ctx, "")
			So(codeOf(err), ShouldEqual, service.CodeUnauthorized)
		})

		Convey("VerifyToken accepts a signed token whose admin is gone", func() {
			token, err := auth.NewTokenIssuer("change-me-in-production", time.Hour).Issue(999, "ghost", "admin")
			So(err, ShouldBeNil)
			claims, err := f.svc.VerifyToken(ctx, token)
			So(err, ShouldBeNil)
			So(claims.UserID, ShouldEqual, 999)
			_, err = f.svc.Authorize(ctx, token)
			So(codeOf(err), ShouldEqual, service.CodeUnauthorized)
		})
	})
}
