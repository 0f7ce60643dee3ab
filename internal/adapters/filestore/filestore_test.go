package filestore_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/prebook/internal/adapters/filestore"
)

func TestStore(t *testing.T) {
	Convey("Given a store rooted at a fresh directory", t, func() {
		dir := filepath.Join(t.TempDir(), "data")
		s := filestore.New(dir)

		Convey("Missing files read as empty", func() {
			rows, err := s.Read("plans.csv")
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)

			text, err := s.ReadText("notes.txt")
			So(err, ShouldBeNil)
			So(text, ShouldEqual, "")
		})

		Convey("Write creates the directory and quotes when needed", func() {
			rows := []filestore.Row{
				{"id": "1", "name": "Basic, 25", "note": `say "hi"`},
				{"id": "2", "name": "Standard", "note": ""},
			}
			So(s.Write("plans.csv", rows, "id", "name", "note"), ShouldBeNil)

			raw, err := os.ReadFile(filepath.Join(dir, "plans.csv"))
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, "id,name,note\n1,\"Basic, 25\",\"say \"\"hi\"\"\"\n2,Standard,\n")

			got, err := s.Read("plans.csv")
			So(err, ShouldBeNil)
			So(cmp.Diff(rows, got), ShouldBeEmpty)
		})

		Convey("Without columns the header is the sorted keys of the first row", func() {
			So(s.Write("t.csv", []filestore.Row{{"b": "2", "a": "1"}}), ShouldBeNil)
			cols, err := s.Columns("t.csv")
			So(err, ShouldBeNil)
			So(cols, ShouldResemble, []string{"a", "b"})
		})

		Convey("Empty rows write an empty file", func() {
			So(s.Write("empty.csv", nil), ShouldBeNil)
			raw, err := os.ReadFile(filepath.Join(dir, "empty.csv"))
			So(err, ShouldBeNil)
			So(raw, ShouldBeEmpty)
		})

		Convey("Append, Update and Delete rewrite the table", func() {
			So(s.Write("orders.csv", []filestore.Row{{"id": "1", "status": "pending"}}, "id", "status"), ShouldBeNil)
			So(s.Append("orders.csv", filestore.Row{"id": "2", "status": "pending"}), ShouldBeNil)

			n, err := s.Update("orders.csv", func(r filestore.Row) bool { return r["id"] == "2" },
				filestore.Row{"status": "shipped", "tracking": "TRK"})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			cols, _ := s.Columns("orders.csv")
			So(cols, ShouldResemble, []string{"id", "status", "tracking"})

			n, err = s.Delete("orders.csv", func(r filestore.Row) bool { return r["status"] == "pending" })
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			rows, err := s.Read("orders.csv")
			So(err, ShouldBeNil)
			So(rows, ShouldResemble, []filestore.Row{{"id": "2", "status": "shipped", "tracking": "TRK"}})
		})

		Convey("Text files round-trip", func() {
			So(s.WriteText("notes.txt", "hello\nworld"), ShouldBeNil)
			text, err := s.ReadText("notes.txt")
			So(err, ShouldBeNil)
			So(text, ShouldEqual, "hello\nworld")
		})

		Convey("Names may not escape the directory", func() {
			_, err := s.Read("../etc/passwd")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestGenerateID(t *testing.T) {
	Convey("IDs carry the clock millis and a base36 suffix", t, func() {
		at := time.UnixMilli(1700000000123)
		s := filestore.New(t.TempDir(), filestore.WithClock(func() time.Time { return at }))
		id := s.GenerateID()
		So(id, ShouldStartWith, "1700000000123-")
		So(regexp.MustCompile(`^\d+-[0-9a-z]{9}$`).MatchString(id), ShouldBeTrue)
		So(s.GenerateID(), ShouldNotEqual, id)
	})
}
