package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/defend100/internal/adapters/mq/queue"
	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func progressWrite(id string, v float64) model.Write {
	return model.Write{ID: id, Kind: model.WriteProgress, Date: "2024-05-01", Key: goals.Hydration, Value: v}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity 2", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When writes are enqueued", func() {
			So(q.Enqueue(ctx, progressWrite("a", 1)), ShouldBeNil)
			So(q.Enqueue(ctx, progressWrite("b", 2)), ShouldBeNil)

			Convey("Then they come out in order", func() {
				So(q.Len(ctx), ShouldEqual, 2)
				ch := q.Dequeue(ctx)
				So((<-ch).ID, ShouldEqual, "a")
				So((<-ch).ID, ShouldEqual, "b")
				So(q.Len(ctx), ShouldEqual, 0)
			})

			Convey("Then a third write is rejected without blocking", func() {
				err := q.Enqueue(ctx, progressWrite("c", 3))
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
			})
		})

		Convey("When the queue is closed with pending writes", func() {
			So(q.Enqueue(ctx, progressWrite("a", 1)), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new writes fail and pending ones drain", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(errors.Is(q.Enqueue(ctx, progressWrite("b", 2)), queue.ErrClosed), ShouldBeTrue)
				var got []string
				for w := range q.Dequeue(ctx) {
					got = append(got, w.ID)
				}
				So(got, ShouldResemble, []string{"a"})
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(errors.Is(q.Enqueue(cctx, progressWrite("a", 1)), context.Canceled), ShouldBeTrue)
		})

		Convey("When enqueue and close race", func() {
			big := queue.NewInMemoryQueue(queue.WithCapacity(1000))
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = big.Enqueue(ctx, progressWrite("x", 1))
				}()
			}
			_ = big.Close()
			wg.Wait()

			Convey("Then nothing panics and the channel closes", func() {
				n := 0
				for range big.Dequeue(ctx) {
					n++
				}
				So(n, ShouldBeLessThanOrEqualTo, 50)
			})
		})
	})
}
