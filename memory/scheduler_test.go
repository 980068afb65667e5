package memory_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/personaflow/tieredmem/memory"
	"github.com/personaflow/tieredmem/memory/llm/mock"
	filestore "github.com/personaflow/tieredmem/memory/store/file"
)

func newTestScheduler(t *testing.T) (*memory.Scheduler, *memory.Coordinator) {
	t.Helper()
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	coord, err := memory.NewCoordinator(nil, store, mock.New())
	if err != nil {
		t.Fatalf("Failed to create coordinator: %v", err)
	}
	t.Cleanup(func() { coord.Close() })
	scheduler := memory.NewScheduler(coord, 8)
	t.Cleanup(scheduler.Stop)
	return scheduler, coord
}

func TestScheduler_RunsScheduledUpdate(t *testing.T) {
	scheduler, coord := newTestScheduler(t)
	ctx := context.Background()

	handle := scheduler.Schedule([]memory.Event{
		{Role: "user", Content: "scheduled fact", Time: time.Now()},
	}, "u1", true)
	if handle.ID() == "" {
		t.Error("handle should carry a job ID")
	}
	if err := handle.Await(ctx); err != nil {
		t.Fatalf("Await failed: %v", err)
	}

	items := coord.ShortTerm().Recent(ctx, "u1", 10)
	if len(items) != 1 || !strings.Contains(items[0].Content, "scheduled fact") {
		t.Errorf("scheduled update did not land, items = %v", items)
	}
}

func TestScheduler_FIFOPerUser(t *testing.T) {
	scheduler, coord := newTestScheduler(t)
	ctx := context.Background()

	var last *memory.Handle
	for i := 0; i < 5; i++ {
		last = scheduler.Schedule([]memory.Event{
			{Role: "user", Content: fmt.Sprintf("turn %d", i), Time: time.Now()},
		}, "u1", true)
	}
	if err := last.Await(ctx); err != nil {
		t.Fatalf("Await failed: %v", err)
	}

	// The newest item corresponds to the last submission.
	items := coord.ShortTerm().Recent(ctx, "u1", 1)
	if len(items) != 1 || !strings.Contains(items[0].Content, "turn 4") {
		t.Errorf("submission order not preserved, newest = %v", items)
	}
}

func TestScheduler_AwaitHonorsContext(t *testing.T) {
	scheduler, _ := newTestScheduler(t)

	handle := scheduler.Schedule([]memory.Event{
		{Role: "user", Content: "slow", Time: time.Now()},
	}, "u1", true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := handle.Await(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Await with canceled ctx = %v, want ctx error or completion", err)
	}
}

func TestScheduler_RejectsWhenQueueFull(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	release := make(chan struct{})
	adapter := mock.New()
	adapter.SummarizeFn = func(ctx context.Context, events []memory.Event) (string, error) {
		<-release
		return "Snapshot", nil
	}
	coord, err := memory.NewCoordinator(nil, store, adapter)
	if err != nil {
		t.Fatalf("Failed to create coordinator: %v", err)
	}
	t.Cleanup(func() { coord.Close() })

	scheduler := memory.NewScheduler(coord, 1)
	t.Cleanup(scheduler.Stop)

	first := scheduler.Schedule([]memory.Event{
		{Role: "user", Content: "head of the queue", Time: time.Now()},
	}, "u1", true)
	select {
	case <-first.Done():
		t.Fatal("the first job must be accepted, not rejected")
	default:
	}

	// The worker is blocked in summarization and the buffer holds one job,
	// so flooding must reject without blocking.
	busy := 0
	for i := 0; i < 8; i++ {
		h := scheduler.Schedule([]memory.Event{
			{Role: "user", Content: fmt.Sprintf("flood %d", i), Time: time.Now()},
		}, "u1", true)
		select {
		case <-h.Done():
			if err := h.Await(context.Background()); errors.Is(err, memory.ErrSchedulerBusy) {
				busy++
			}
		default:
		}
	}
	if busy == 0 {
		t.Error("flooding a full queue should reject at least one job")
	}

	close(release)
	if err := first.Await(context.Background()); err != nil {
		t.Errorf("accepted job should complete after release: %v", err)
	}
}

func TestScheduler_StopRejectsNewJobs(t *testing.T) {
	scheduler, _ := newTestScheduler(t)
	scheduler.Stop()
	// Stop twice is safe.
	scheduler.Stop()

	handle := scheduler.Schedule([]memory.Event{
		{Role: "user", Content: "too late", Time: time.Now()},
	}, "u1", true)

	select {
	case <-handle.Done():
	case <-time.After(time.Second):
		t.Fatal("rejected handle should complete immediately")
	}
	if err := handle.Await(context.Background()); !errors.Is(err, memory.ErrSchedulerStopped) {
		t.Errorf("Await = %v, want ErrSchedulerStopped", err)
	}
}
