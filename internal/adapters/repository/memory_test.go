package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/prive/internal/adapters/repository"
	"github.com/okian/prive/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func snapshotAt(i int, trigger string) model.Snapshot {
	return model.NewSnapshot(
		time.Now().Add(time.Duration(i)*time.Minute),
		float64(i),
		model.TierNone,
		map[model.PillarID]float64{model.PillarTrust: float64(i)},
		trigger,
	)
}

func TestMemoryStore(t *testing.T) {
	Convey("Given an in-memory record store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()

		Convey("When getting a record that does not exist yet", func() {
			rec, err := store.GetOrCreate(ctx, "user-1")

			Convey("Then a default record is created", func() {
				So(err, ShouldBeNil)
				So(rec.UserID, ShouldEqual, "user-1")
				So(rec.Tier, ShouldEqual, model.TierNone)
				So(rec.Pillars.Trust.Score, ShouldEqual, model.NeutralTrustScore)
				So(rec.Revision, ShouldEqual, 0)
			})

			Convey("And a second GetOrCreate returns the same record", func() {
				again, err := store.GetOrCreate(ctx, "user-1")
				So(err, ShouldBeNil)
				So(again, ShouldResemble, rec)

				n, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("And mutating the returned record does not leak into the store", func() {
				rec.TotalScore = 99
				stored, err := store.Get(ctx, "user-1")
				So(err, ShouldBeNil)
				So(stored.TotalScore, ShouldEqual, 0)
			})
		})

		Convey("When getting an unknown user with Get", func() {
			_, err := store.Get(ctx, "nobody")

			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When saving a loaded record", func() {
			rec, err := store.GetOrCreate(ctx, "user-1")
			So(err, ShouldBeNil)

			rec.TotalScore = 72.5
			rec.Tier = model.TierSignature
			rec.IsEligible = true

			err = store.Save(ctx, rec, snapshotAt(1, "manual"))

			Convey("Then the save succeeds and bumps the revision", func() {
				So(err, ShouldBeNil)
				So(rec.Revision, ShouldEqual, 1)

				stored, err := store.Get(ctx, "user-1")
				So(err, ShouldBeNil)
				So(stored.TotalScore, ShouldEqual, 72.5)
				So(stored.Revision, ShouldEqual, 1)
			})
		})

		Convey("When two loaded copies race to save", func() {
			first, err := store.GetOrCreate(ctx, "user-1")
			So(err, ShouldBeNil)
			second, err := store.Get(ctx, "user-1")
			So(err, ShouldBeNil)

			first.TotalScore = 60
			So(store.Save(ctx, first), ShouldBeNil)

			second.TotalScore = 70
			err = store.Save(ctx, second)

			Convey("Then the stale copy loses with a conflict", func() {
				So(err, ShouldEqual, repository.ErrConflict)

				stored, err := store.Get(ctx, "user-1")
				So(err, ShouldBeNil)
				So(stored.TotalScore, ShouldEqual, 60)
			})

			Convey("And reloading resolves the conflict", func() {
				reloaded, err := store.Get(ctx, "user-1")
				So(err, ShouldBeNil)
				reloaded.TotalScore = 70
				So(store.Save(ctx, reloaded), ShouldBeNil)
			})
		})

		Convey("When saving a record that was never created", func() {
			err := store.Save(ctx, model.NewRecord("ghost"))

			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When snapshots accumulate past the in-record window", func() {
			rec, err := store.GetOrCreate(ctx, "user-1")
			So(err, ShouldBeNil)

			total := model.HistoryLimit + 10
			for i := 0; i < total; i++ {
				rec.AppendSnapshot(snapshotAt(i, fmt.Sprintf("trigger-%d", i)))
				So(store.Save(ctx, rec, snapshotAt(i, fmt.Sprintf("trigger-%d", i))), ShouldBeNil)
			}

			Convey("Then the durable log keeps everything", func() {
				all, err := store.History(ctx, "user-1", total)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, total)
			})

			Convey("And history reads newest first", func() {
				page, err := store.History(ctx, "user-1", 3)
				So(err, ShouldBeNil)
				So(page, ShouldHaveLength, 3)
				So(page[0].Trigger, ShouldEqual, fmt.Sprintf("trigger-%d", total-1))
				So(page[1].Trigger, ShouldEqual, fmt.Sprintf("trigger-%d", total-2))
				So(page[2].Trigger, ShouldEqual, fmt.Sprintf("trigger-%d", total-3))
			})

			Convey("While the record's own window stays capped", func() {
				stored, err := store.Get(ctx, "user-1")
				So(err, ShouldBeNil)
				So(stored.History, ShouldHaveLength, model.HistoryLimit)
			})
		})

		Convey("When listing eligible records", func() {
			seed := func(userID string, score float64, tier model.Tier) {
				rec, err := store.GetOrCreate(ctx, userID)
				So(err, ShouldBeNil)
				rec.TotalScore = score
				rec.Tier = tier
				rec.IsEligible = tier != model.TierNone
				So(store.Save(ctx, rec), ShouldBeNil)
			}

			seed("alice", 92, model.TierElite)
			seed("bob", 55, model.TierEntry)
			seed("carol", 78, model.TierSignature)
			seed("dave", 40, model.TierNone)
			seed("erin", 78, model.TierSignature)

			Convey("Then ineligible records never appear", func() {
				recs, err := store.ListEligible(ctx, "", 0)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 4)
			})

			Convey("Then ordering is score descending with user id as tiebreak", func() {
				recs, err := store.ListEligible(ctx, "", 0)
				So(err, ShouldBeNil)
				So(recs[0].UserID, ShouldEqual, "alice")
				So(recs[1].UserID, ShouldEqual, "carol")
				So(recs[2].UserID, ShouldEqual, "erin")
				So(recs[3].UserID, ShouldEqual, "bob")
			})

			Convey("Then the tier filter narrows the result", func() {
				recs, err := store.ListEligible(ctx, model.TierSignature, 0)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].UserID, ShouldEqual, "carol")
			})

			Convey("Then the limit truncates the result", func() {
				recs, err := store.ListEligible(ctx, "", 2)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].UserID, ShouldEqual, "alice")
			})
		})

		Convey("When reading history of an unknown user", func() {
			_, err := store.History(ctx, "nobody", 10)

			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When closing the store", func() {
			So(store.Close(), ShouldBeNil)
		})
	})
}

func TestMemoryStoreConcurrentGetOrCreate(t *testing.T) {
	Convey("Given concurrent first access for the same user", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()

		done := make(chan *model.ReputationRecord, 10)
		for i := 0; i < 10; i++ {
			go func() {
				rec, err := store.GetOrCreate(ctx, "user-1")
				if err != nil {
					done <- nil
					return
				}
				done <- rec
			}()
		}

		Convey("Then exactly one record exists afterwards", func() {
			for i := 0; i < 10; i++ {
				So(<-done, ShouldNotBeNil)
			}
			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})
	})
}
