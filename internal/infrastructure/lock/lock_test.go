package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/semmidev/archivist/internal/domain"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLock(t *testing.T) {
	Convey("Given a lock path", t, func() {
		tempDir, err := os.MkdirTemp("", "lock_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		path := filepath.Join(tempDir, "archivist.lock")

		Convey("When the marker is absent", func() {
			l, err := Acquire(path)

			Convey("It should create the marker", func() {
				So(err, ShouldBeNil)
				So(l.Path(), ShouldEqual, path)
				_, err := os.Stat(path)
				So(err, ShouldBeNil)
			})

			Convey("A second acquire should fail with ErrAlreadyRunning", func() {
				_, err := Acquire(path)
				So(errors.Is(err, domain.ErrAlreadyRunning), ShouldBeTrue)
			})

			Convey("Release should remove the marker and be idempotent", func() {
				So(l.Release(), ShouldBeNil)
				So(l.Release(), ShouldBeNil)
				_, err := os.Stat(path)
				So(os.IsNotExist(err), ShouldBeTrue)

				again, err := Acquire(path)
				So(err, ShouldBeNil)
				So(again.Release(), ShouldBeNil)
			})
		})

		Convey("When the marker pre-exists", func() {
			So(os.WriteFile(path, []byte("someone else"), 0644), ShouldBeNil)

			_, err := Acquire(path)

			Convey("It should fail and leave the marker untouched", func() {
				So(errors.Is(err, domain.ErrAlreadyRunning), ShouldBeTrue)
				content, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(content), ShouldEqual, "someone else")
			})
		})

		Convey("When the lock directory does not exist yet", func() {
			nested := filepath.Join(tempDir, "run", "archivist.lock")
			l, err := Acquire(nested)

			Convey("It should create it", func() {
				So(err, ShouldBeNil)
				So(l.Release(), ShouldBeNil)
			})
		})
	})
}
