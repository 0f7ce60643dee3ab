package template_test

import (
	"testing"

	"github.com/okian/prebook/internal/domain/template"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRender(t *testing.T) {
	Convey("Given a template with placeholders", t, func() {
		tmpl := "Hello {{name}}, order {{orderNumber}} for {{name}}"

		Convey("All occurrences are replaced", func() {
			out := template.Render(tmpl, map[string]string{"name": "Asha", "orderNumber": "SL-IN-1"})
			So(out, ShouldEqual, "Hello Asha, order SL-IN-1 for Asha")
		})

		Convey("Unknown placeholders stay untouched", func() {
			out := template.Render(tmpl, map[string]string{"name": "Asha"})
			So(out, ShouldEqual, "Hello Asha, order {{orderNumber}} for Asha")
		})

		Convey("Values are inserted literally without escaping", func() {
			out := template.Render("<p>{{x}}</p>", map[string]string{"x": "<b>&</b>"})
			So(out, ShouldEqual, "<p><b>&</b></p>")
		})

		Convey("Replacement output is not re-expanded", func() {
			out := template.Render("{{a}}", map[string]string{"a": "{{b}}", "b": "no"})
			So(out, ShouldEqual, "{{b}}")
		})

		Convey("Empty variables return the input", func() {
			So(template.Render(tmpl, nil), ShouldEqual, tmpl)
		})
	})
}

func TestVariables(t *testing.T) {
	Convey("Placeholders are extracted in first-seen order without duplicates", t, func() {
		vars := template.Variables("#{{orderNumber}}", "Hi {{firstName}} {{orderNumber}} {{year}} {{ spaced }}")
		So(vars, ShouldResemble, []string{"orderNumber", "firstName", "year"})
	})

	Convey("Missing reports uncovered placeholders", t, func() {
		So(template.Missing("{{a}} {{b}}", map[string]string{"a": "1"}), ShouldResemble, []string{"b"})
	})
}

func TestDefaults(t *testing.T) {
	Convey("Given the built-in templates", t, func() {
		defs, err := template.Defaults()
		So(err, ShouldBeNil)
		So(len(defs), ShouldEqual, 2)

		byName := map[string]template.Default{}
		for _, d := range defs {
			byName[d.Name] = d
		}

		Convey("The order confirmation declares its variables", func() {
			d := byName[template.OrderConfirmation]
			So(d.Subject, ShouldEqual, "Order Confirmation - Starlink India #{{orderNumber}}")
			So(d.Variables, ShouldContain, "shippingAddress")
			So(d.Body, ShouldContainSubstring, "{{totalPaid}}")
		})

		Convey("The shipping notification mentions the tracking number", func() {
			d := byName[template.ShippingNotification]
			So(d.Subject, ShouldEqual, "Your Starlink Order Has Shipped! #{{orderNumber}}")
			So(d.Body, ShouldContainSubstring, "{{trackingNumber}}")
		})
	})
}
