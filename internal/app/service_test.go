package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/prebook/internal/adapters/counter"
	service "github.com/okian/prebook/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		f := newFixture(t)

		Convey("Then stats report it as started", func() {
			stats := f.svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["totalOrders"], ShouldEqual, int64(0))
		})

		Convey("Then totalOrders counts stored orders", func() {
			_, _, err := f.svc.CreateOrder(context.Background(), validInput(), "")
			So(err, ShouldBeNil)
			So(f.svc.GetStats()["totalOrders"], ShouldEqual, int64(1))
		})

		Convey("Starting twice is a no-op", func() {
			So(f.svc.Start(context.Background()), ShouldBeNil)
		})

		Convey("When stopped it reports stopped and a second stop is safe", func() {
			f.svc.Stop()
			So(f.svc.GetStats()["started"], ShouldEqual, false)
			So(func() { f.svc.Stop() }, ShouldNotPanic)
		})
	})
}

func TestService_SendEmail(t *testing.T) {
	Convey("Given a started service", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("An unknown template is not sent", func() {
			So(f.svc.SendEmail(ctx, "a@b.in", "welcome", nil), ShouldBeFalse)
		})

		Convey("A known template is rendered and delivered", func() {
			ok := f.svc.SendEmail(ctx, "a@b.in", "shipping_notification", map[string]string{
				"firstName": "Asha", "orderNumber": "SL-IN-1", "trackingNumber": "TRK1", "year": "2026",
			})
			So(ok, ShouldBeTrue)

			sent := f.mailer.waitFor(1)
			So(sent, ShouldHaveLength, 1)
			So(sent[0].Subject, ShouldEqual, "Your Starlink Order Has Shipped! #SL-IN-1")
			So(sent[0].Body, ShouldContainSubstring, "TRK1")
			So(sent[0].From, ShouldEqual, "orders@starlink-india.com")
		})
	})
}

func TestService_Dashboards(t *testing.T) {
	Convey("Given a service with a small counter", t, func() {
		f := newFixture(t, service.WithCounter(counter.NewMemory(1500), 2000, 0))
		ctx := context.Background()

		Convey("Prebookings reports the counter with Indian grouping", func() {
			p, err := f.svc.Prebookings(ctx)
			So(err, ShouldBeNil)
			So(p.Count, ShouldBeGreaterThanOrEqualTo, int64(1500))
			So(p.Target, ShouldEqual, int64(2000))
		})

		Convey("Local addresses pass the location check", func() {
			v := f.svc.CheckLocation(ctx, "127.0.0.1")
			So(v.Allowed, ShouldBeTrue)
			So(v.Country, ShouldEqual, "IN")
		})

		Convey("A seeded analytics request is repeatable", func() {
			So(f.svc.Analytics("42"), ShouldResemble, f.svc.Analytics("42"))
			So(f.svc.Analytics("0"), ShouldResemble, f.svc.Analytics("0"))
			So(f.svc.Analytics("-42"), ShouldResemble, f.svc.Analytics("-42"))
			So(f.svc.Analytics("-42"), ShouldNotResemble, f.svc.Analytics("42"))
			live := f.svc.LiveUsers("7")
			So(live.Count, ShouldBeBetweenOrEqual, 120, 169)
		})
	})
}

func TestError_Kinds(t *testing.T) {
	Convey("Service errors unwrap to their kind", t, func() {
		var err error = &service.Error{Kind: service.ErrNotFound, Code: service.CodeOrderNotFound, Message: "Order not found"}
		So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		So(errors.Is(err, service.ErrInvalid), ShouldBeFalse)
		So(err.Error(), ShouldEqual, "Order not found")
	})
}
