package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/prebook/internal/adapters/http/api"
	"github.com/okian/prebook/internal/adapters/repository"
	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type harness struct {
	mux *http.ServeMux
	svc *service.Service
}

func newHarness(t *testing.T, opts ...api.Option) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := service.New(service.Stores{
		Orders:    db.Orders(),
		Plans:     db.Plans(),
		Templates: db.Templates(),
		Admins:    db.Admins(),
	}, service.WithWorkerCount(1), service.WithLogger(logger.NewNop()))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		svc.Stop()
		_ = db.Close()
	})

	mux := http.NewServeMux()
	api.NewServer(svc, opts...).Register(ctx, mux)
	return &harness{mux: mux, svc: svc}
}

func (h *harness) do(method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	return w
}

func (h *harness) login(t *testing.T) map[string]string {
	t.Helper()
	w := h.do(http.MethodPost, "/api/admin/auth/login", map[string]string{"username": "admin", "password": "admin123"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return map[string]string{"Authorization": "Bearer " + out.Token}
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func orderBody() map[string]any {
	return map[string]any{
		"customerFirstName": "Asha",
		"customerLastName":  "Rao",
		"customerEmail":     "asha@example.com",
		"customerPhone":     "9876543210",
		"customerAddress":   "12 MG Road",
		"customerCity":      "Bengaluru",
		"customerState":     "Karnataka",
		"customerPincode":   "560001",
		"serviceType":       "residential",
		"planId":            "standard",
		"planName":          "Standard",
		"planSpeed":         "50 Mbps",
		"planPrice":         3750,
		"devicePrice":       33000,
		"totalPaid":         33000,
	}
}

func TestPublicOrders(t *testing.T) {
	Convey("Given the API", t, func() {
		h := newHarness(t)

		Convey("A valid order is created", func() {
			w := h.do(http.MethodPost, "/api/orders", orderBody(), nil)
			So(w.Code, ShouldEqual, http.StatusCreated)
			body := decode(w)
			So(body["success"], ShouldEqual, true)
			So(body["emailSent"], ShouldEqual, true)
			So(body["message"], ShouldEqual, "Order created successfully")
			order := body["order"].(map[string]any)
			So(order["status"], ShouldEqual, "pending")

			Convey("And it can be looked up by number", func() {
				w := h.do(http.MethodGet, "/api/orders?orderNumber="+order["orderNumber"].(string), nil, nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["orders"], ShouldHaveLength, 1)
			})
		})

		Convey("A missing field fails the schema", func() {
			b := orderBody()
			delete(b, "totalPaid")
			w := h.do(http.MethodPost, "/api/orders", b, nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "MISSING_FIELDS")
		})

		Convey("A wrongly typed field fails the schema", func() {
			b := orderBody()
			b["planPrice"] = "free"
			w := h.do(http.MethodPost, "/api/orders", b, nil)
			So(decode(w)["code"], ShouldEqual, "MISSING_FIELDS")
		})

		Convey("Malformed JSON is rejected", func() {
			w := h.do(http.MethodPost, "/api/orders", "{not json", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, api.CodeInvalidJSON)
		})

		Convey("Business validation errors carry their message", func() {
			b := orderBody()
			b["customerPhone"] = "12345"
			w := h.do(http.MethodPost, "/api/orders", b, nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			body := decode(w)
			So(body["code"], ShouldEqual, "INVALID_PHONE")
			So(body["error"], ShouldEqual, "Phone number must be 10 digits")
		})

		Convey("A repeated Idempotency-Key is a conflict", func() {
			hdr := map[string]string{"Idempotency-Key": "abc"}
			So(h.do(http.MethodPost, "/api/orders", orderBody(), hdr).Code, ShouldEqual, http.StatusCreated)
			w := h.do(http.MethodPost, "/api/orders", orderBody(), hdr)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode(w)["code"], ShouldEqual, "DUPLICATE_REQUEST")
		})

		Convey("Lookup needs a parameter", func() {
			w := h.do(http.MethodGet, "/api/orders", nil, nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "MISSING_PARAMS")
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a limit of one order with no burst", t, func() {
		h := newHarness(t, api.WithRateLimit(0.001, 1))

		Convey("The second request from the same peer is throttled", func() {
			So(h.do(http.MethodPost, "/api/orders", orderBody(), nil).Code, ShouldEqual, http.StatusCreated)
			w := h.do(http.MethodPost, "/api/orders", orderBody(), nil)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode(w)["code"], ShouldEqual, api.CodeRateLimited)
			So(w.Header().Get("Retry-After"), ShouldEqual, "1")
		})

		Convey("Rotating X-Forwarded-For from an untrusted peer does not reset the bucket", func() {
			created := 0
			for i := range 5 {
				hdr := map[string]string{"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i)}
				if h.do(http.MethodPost, "/api/orders", orderBody(), hdr).Code == http.StatusCreated {
					created++
				}
			}
			So(created, ShouldEqual, 1)
		})
	})

	Convey("Given the test peer is a trusted proxy", t, func() {
		// httptest requests come from 192.0.2.1.
		h := newHarness(t,
			api.WithRateLimit(0.001, 1),
			api.WithTrustedProxies([]netip.Prefix{netip.MustParsePrefix("192.0.2.0/24")}),
		)
		hdr := map[string]string{"X-Forwarded-For": "203.0.113.9, 192.0.2.1"}

		Convey("Clients behind it are limited by their forwarded address", func() {
			So(h.do(http.MethodPost, "/api/orders", orderBody(), hdr).Code, ShouldEqual, http.StatusCreated)
			So(h.do(http.MethodPost, "/api/orders", orderBody(), hdr).Code, ShouldEqual, http.StatusTooManyRequests)

			Convey("While another client still gets through", func() {
				other := map[string]string{"X-Forwarded-For": "203.0.113.10"}
				So(h.do(http.MethodPost, "/api/orders", orderBody(), other).Code, ShouldEqual, http.StatusCreated)
			})
		})
	})
}

func TestAdminAuth(t *testing.T) {
	Convey("Given the API", t, func() {
		h := newHarness(t)

		Convey("Admin routes need a token", func() {
			w := h.do(http.MethodGet, "/api/admin/orders", nil, nil)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(decode(w)["code"], ShouldEqual, "UNAUTHORIZED")
		})

		Convey("Bad credentials are rejected", func() {
			w := h.do(http.MethodPost, "/api/admin/auth/login", map[string]string{"username": "admin", "password": "x"}, nil)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(decode(w)["code"], ShouldEqual, "INVALID_CREDENTIALS")
		})

		Convey("A session without a token reports NO_TOKEN", func() {
			w := h.do(http.MethodGet, "/api/admin/auth/session", nil, nil)
			So(decode(w)["code"], ShouldEqual, "NO_TOKEN")
		})

		Convey("A logged-in admin resolves their session and changes password", func() {
			session := h.login(t)
			w := h.do(http.MethodGet, "/api/admin/auth/session", nil, session)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["admin"].(map[string]any)["username"], ShouldEqual, "admin")

			w = h.do(http.MethodPost, "/api/admin/auth/change-password",
				map[string]string{"currentPassword": "admin123", "newPassword": "abc"}, session)
			So(decode(w)["code"], ShouldEqual, "PASSWORD_TOO_SHORT")

			w = h.do(http.MethodPost, "/api/admin/auth/change-password",
				map[string]string{"currentPassword": "admin123", "newPassword": "n3w-secret"}, session)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["message"], ShouldEqual, "Password changed successfully")
		})

		Convey("A valid token for a removed admin cannot change a password", func() {
			token, err := auth.NewTokenIssuer("change-me-in-production", time.Hour).Issue(999, "ghost", "admin")
			So(err, ShouldBeNil)
			hdr := map[string]string{"Authorization": "Bearer " + token}

			w := h.do(http.MethodPost, "/api/admin/auth/change-password",
				map[string]string{"currentPassword": "admin123", "newPassword": "n3w-secret"}, hdr)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "USER_NOT_FOUND")

			Convey("While other admin routes still reject it", func() {
				So(h.do(http.MethodGet, "/api/admin/orders", nil, hdr).Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("Change password without a token is unauthorized", func() {
			w := h.do(http.MethodPost, "/api/admin/auth/change-password",
				map[string]string{"currentPassword": "admin123", "newPassword": "n3w-secret"}, nil)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(decode(w)["code"], ShouldEqual, "UNAUTHORIZED")
		})
	})
}

func TestAdminOrders(t *testing.T) {
	Convey("Given an order and an admin session", t, func() {
		h := newHarness(t)
		session := h.login(t)
		created := decode(h.do(http.MethodPost, "/api/orders", orderBody(), nil))["order"].(map[string]any)
		id := int64(created["id"].(float64))
		path := fmt.Sprintf("/api/admin/orders/%d", id)

		Convey("The list includes it", func() {
			body := decode(h.do(http.MethodGet, "/api/admin/orders?search=asha", nil, session))
			So(body["total"], ShouldEqual, 1.0)
			So(body["limit"], ShouldEqual, 20.0)
		})

		Convey("A non-numeric id is rejected", func() {
			w := h.do(http.MethodGet, "/api/admin/orders/abc", nil, session)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "INVALID_ID")
		})

		Convey("An unknown id is not found", func() {
			w := h.do(http.MethodGet, "/api/admin/orders/9999", nil, session)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "ORDER_NOT_FOUND")
		})

		Convey("Shipping it returns the updated order", func() {
			w := h.do(http.MethodPut, path, map[string]string{"status": model.StatusShipped, "trackingNumber": "TRK-1"}, session)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["status"], ShouldEqual, "shipped")
			So(body["trackingNumber"], ShouldEqual, "TRK-1")
			So(body["shippedAt"], ShouldNotBeNil)
		})

		Convey("An invalid status is rejected", func() {
			w := h.do(http.MethodPut, path, map[string]string{"status": "lost"}, session)
			So(decode(w)["code"], ShouldEqual, "INVALID_STATUS")
		})

		Convey("Stats count it", func() {
			w := h.do(http.MethodGet, "/api/admin/orders/stats", nil, session)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["totalOrders"], ShouldEqual, 1.0)
			So(body["totalRevenue"], ShouldEqual, 33000.0)
			So(decode(h.do(http.MethodGet, "/api/admin/orders/stats?startDate=nope", nil, session))["code"], ShouldEqual, "INVALID_DATE")
		})

		Convey("Deleting returns the deleted order", func() {
			body := decode(h.do(http.MethodDelete, path, nil, session))
			So(body["message"], ShouldEqual, "Order deleted successfully")
			So(body["deletedOrder"], ShouldNotBeNil)
		})
	})
}

func TestAdminPlansAndTemplates(t *testing.T) {
	Convey("Given an admin session", t, func() {
		h := newHarness(t)
		session := h.login(t)

		Convey("The public plan list is a bare array", func() {
			var plans []model.Plan
			w := h.do(http.MethodGet, "/api/plans", nil, nil)
			So(json.Unmarshal(w.Body.Bytes(), &plans), ShouldBeNil)
			So(plans, ShouldHaveLength, 3)
		})

		Convey("A plan is created, then soft and hard deleted", func() {
			w := h.do(http.MethodPost, "/api/admin/plans", map[string]any{"planId": "mini", "name": "Mini", "speed": "20 Mbps"}, session)
			So(w.Code, ShouldEqual, http.StatusCreated)
			id := int64(decode(w)["id"].(float64))

			body := decode(h.do(http.MethodDelete, fmt.Sprintf("/api/admin/plans/%d", id), nil, session))
			So(body["message"], ShouldEqual, "Plan deactivated successfully")
			So(body["plan"].(map[string]any)["isActive"], ShouldEqual, false)

			body = decode(h.do(http.MethodDelete, fmt.Sprintf("/api/admin/plans/%d?hard=true", id), nil, session))
			So(body["message"], ShouldEqual, "Plan deleted permanently")

			w = h.do(http.MethodGet, fmt.Sprintf("/api/admin/plans/%d", id), nil, session)
			So(decode(w)["code"], ShouldEqual, "PLAN_NOT_FOUND")
		})

		Convey("The isActive filter accepts 1", func() {
			body := decode(h.do(http.MethodGet, "/api/admin/plans?isActive=1", nil, session))
			So(body["total"], ShouldEqual, 3.0)
			So(body["limit"], ShouldEqual, 10.0)
		})

		Convey("Templates reject non-array variables", func() {
			w := h.do(http.MethodPost, "/api/admin/email-templates", map[string]any{
				"templateName": "welcome", "templateSubject": "Hi", "templateBody": "Hello", "variables": "firstName",
			}, session)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "INVALID_VARIABLES")
		})

		Convey("Templates are created and previewed", func() {
			w := h.do(http.MethodPost, "/api/admin/email-templates", map[string]any{
				"templateName": "welcome", "templateSubject": "Hi {{firstName}}", "templateBody": "Hello {{firstName}}",
			}, session)
			So(w.Code, ShouldEqual, http.StatusCreated)
			id := int64(decode(w)["id"].(float64))

			w = h.do(http.MethodPost, fmt.Sprintf("/api/admin/email-templates/%d/preview", id),
				map[string]any{"variables": map[string]any{"firstName": "Asha"}}, session)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["subject"], ShouldEqual, "Hi Asha")
			So(decode(w)["unresolved"], ShouldBeEmpty)

			body := decode(h.do(http.MethodDelete, fmt.Sprintf("/api/admin/email-templates/%d", id), nil, session))
			So(body["message"], ShouldEqual, "Template deleted successfully")
		})
	})
}

func TestDashboards(t *testing.T) {
	Convey("Given the API", t, func() {
		h := newHarness(t)

		Convey("The counter is public", func() {
			w := h.do(http.MethodGet, "/api/prebookings", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["target"], ShouldEqual, 200000.0)
		})

		Convey("Local callers pass the location check", func() {
			body := decode(h.do(http.MethodGet, "/api/check-location", nil, nil))
			So(body["allowed"], ShouldEqual, true)
			So(body["ip"], ShouldEqual, "unknown")
		})

		Convey("Analytics are admin-only and repeatable with a seed", func() {
			So(h.do(http.MethodGet, "/api/admin/analytics", nil, nil).Code, ShouldEqual, http.StatusUnauthorized)
			session := h.login(t)
			a := decode(h.do(http.MethodGet, "/api/admin/analytics?seed=9", nil, session))
			b := decode(h.do(http.MethodGet, "/api/admin/analytics?seed=9", nil, session))
			So(a["traffic"], ShouldResemble, b["traffic"])
			So(a["abTests"], ShouldResemble, b["abTests"])

			live := decode(h.do(http.MethodGet, "/api/admin/live-users?seed=3", nil, session))
			So(live["count"], ShouldBeBetweenOrEqual, 120.0, 169.0)
		})

		Convey("Ops endpoints respond", func() {
			So(h.do(http.MethodGet, "/healthz", nil, nil).Code, ShouldEqual, http.StatusOK)
			w := h.do(http.MethodGet, "/stats", nil, nil)
			So(decode(w)["started"], ShouldEqual, true)
			w = h.do(http.MethodGet, "/dashboard", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "admin dashboard")
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("OpError unwraps to both kind and cause", t, func() {
		cause := fmt.Errorf("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)
		So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		So(api.Wrap("api.op", nil), ShouldBeNil)
		So(api.NewKind("api.op", api.ErrRateLimited).Error(), ShouldEqual, "api.op: rate limited")
	})
}
