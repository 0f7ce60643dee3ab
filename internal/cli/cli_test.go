package cli

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/prebook/internal/adapters/filestore"
	"github.com/okian/prebook/internal/adapters/repository"
	"github.com/okian/prebook/internal/config"
	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// env points the store and data dir at a fresh temp directory.
func env(t *testing.T) (dsn, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dsn = filepath.Join(dir, "prebook.db")
	dataDir = filepath.Join(dir, "data")
	t.Setenv("PREBOOK_CONFIG", "")
	t.Setenv("PREBOOK_DB_DRIVER", "sqlite")
	t.Setenv("PREBOOK_DB_DSN", dsn)
	t.Setenv("PREBOOK_DATA_DIR", dataDir)
	t.Setenv("PREBOOK_LOG_LEVEL", "error")
	return dsn, dataDir
}

func run(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStoreCommands(t *testing.T) {
	Convey("Given an empty sqlite store", t, func() {
		env(t)

		Convey("migrate creates the schema", func() {
			out, err := run("migrate")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "schema ready (sqlite)")
		})

		Convey("seed inserts the defaults exactly once", func() {
			out, err := run("seed")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "seeded 1 admins, 3 plans, 2 templates")

			out, err = run("seed")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "seeded 0 admins, 0 plans, 0 templates")

			Convey("and plans list prints them", func() {
				out, err := run("plans", "list")
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "basic")
				So(out, ShouldContainSubstring, "premium")
			})
		})

		Convey("orders list rejects an unknown status", func() {
			_, err := run("orders", "list", "--status", "lost")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "invalid status")
		})
	})
}

func TestHashPassword(t *testing.T) {
	Convey("hash-password prints a bcrypt hash", t, func() {
		out, err := run("hash-password", "s3cret!")
		So(err, ShouldBeNil)
		hash := strings.TrimSpace(out)
		So(auth.IsHashed(hash), ShouldBeTrue)
		So(auth.CheckPassword(hash, "s3cret!"), ShouldBeNil)
	})

	Convey("Short passwords are refused", t, func() {
		_, err := run("hash-password", "abc")
		So(err, ShouldNotBeNil)
	})
}

func TestImportExport(t *testing.T) {
	Convey("Given CSV files in the data directory", t, func() {
		dsn, dataDir := env(t)
		fs := filestore.New(dataDir)
		So(fs.Write(plansFile, []filestore.Row{{
			"plan_id": "lite", "name": "Lite", "speed": "25-50 Mbps", "service_type": "residential",
			"discounted_price": "2999", "device_cost": "25000", "features": "Unlimited data | No contract",
			"is_popular": "true", "display_order": "9",
		}}), ShouldBeNil)
		So(fs.Write(adminsFile, []filestore.Row{{
			"username": "ops", "password_hash": "opspass1", "email": "ops@example.in", "full_name": "Ops", "role": "admin",
		}}), ShouldBeNil)
		So(fs.Write(ordersFile, []filestore.Row{{
			"order_number": "SL-IN-1-ABCDEF", "customer_first_name": "Asha", "customer_last_name": "Rao",
			"customer_email": "asha@example.in", "customer_phone": "9876543210", "customer_address": "1 MG Road",
			"customer_city": "Pune", "customer_state": "Maharashtra", "customer_pincode": "411001",
			"service_type": "residential", "plan_id": "lite", "plan_name": "Lite", "plan_speed": "25-50 Mbps",
			"plan_price": "2999", "device_price": "25000", "total_paid": "27999", "status": "confirmed",
			"created_at": "2026-05-01T10:00:00Z",
		}}), ShouldBeNil)

		out, err := run("import")
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "imported 1 plans, 1 admins, 1 orders (0 skipped)")

		db, err := repository.Open(context.Background(), repository.DriverSQLite, dsn)
		So(err, ShouldBeNil)
		defer func() { _ = db.Close() }()

		Convey("Features are split on pipes", func() {
			p, err := db.Plans().GetByPlanID(context.Background(), "lite")
			So(err, ShouldBeNil)
			So(cmp.Diff([]string{"Unlimited data", "No contract"}, p.Features), ShouldBeEmpty)
			So(p.IsActive, ShouldBeTrue)
			So(p.IsPopular, ShouldBeTrue)
		})

		Convey("Plaintext admin passwords are hashed", func() {
			u, err := db.Admins().GetByUsername(context.Background(), "ops")
			So(err, ShouldBeNil)
			So(auth.IsHashed(u.PasswordHash), ShouldBeTrue)
			So(auth.CheckPassword(u.PasswordHash, "opspass1"), ShouldBeNil)
		})

		Convey("A second import skips existing rows", func() {
			out, err := run("import")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "(3 skipped)")
		})

		Convey("orders list shows the imported order", func() {
			out, err := run("orders", "list", "--status", "confirmed")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "SL-IN-1-ABCDEF")
		})

		Convey("export writes the store back out", func() {
			exportDir := filepath.Join(t.TempDir(), "out")
			out, err := run("export", "--dir", exportDir)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "exported 1 plans, 1 orders")

			rows, err := filestore.New(exportDir).Read(ordersFile)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
			So(rows[0]["order_number"], ShouldEqual, "SL-IN-1-ABCDEF")
			So(rows[0]["customer_state"], ShouldEqual, "Maharashtra")
			So(rows[0]["created_at"], ShouldEqual, "2026-05-01T10:00:00Z")

			plans, err := filestore.New(exportDir).Read(plansFile)
			So(err, ShouldBeNil)
			So(plans[0]["features"], ShouldEqual, "Unlimited data|No contract")
		})
	})
}

func TestServe(t *testing.T) {
	Convey("Given a configured app", t, func() {
		cfg := config.New()
		cfg.DBDSN = filepath.Join(t.TempDir(), "prebook.db")
		cfg.DataDir = t.TempDir()
		cfg.EmailOutbox = true
		a := &app{cfg: cfg, log: logger.NewNop()}

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		base := "http://" + ln.Addr().String()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.serve(ctx, ln) }()

		get := func(path string) int {
			resp, err := http.Get(base + path)
			if err != nil {
				return 0
			}
			_ = resp.Body.Close()
			return resp.StatusCode
		}
		ready := false
		for i := 0; i < 100 && !ready; i++ {
			ready = get("/healthz") == http.StatusOK
			if !ready {
				time.Sleep(20 * time.Millisecond)
			}
		}
		So(ready, ShouldBeTrue)

		Reset(func() {
			cancel()
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(10 * time.Second):
				t.Error("serve did not stop")
			}
		})

		Convey("API, docs and site are all mounted", func() {
			So(get("/api/plans"), ShouldEqual, http.StatusOK)
			So(get("/api/prebookings"), ShouldEqual, http.StatusOK)
			So(get("/api-docs"), ShouldEqual, http.StatusOK)
			So(get("/openapi.yaml"), ShouldEqual, http.StatusOK)
			So(get("/"), ShouldEqual, http.StatusOK)
			So(get("/api/admin/orders"), ShouldEqual, http.StatusUnauthorized)
		})
	})
}
