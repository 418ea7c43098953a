package accumulate

import (
	"testing"
	"time"

	"github.com/IlliaSobcko/AIBI-Project/chat"
)

func TestDueReleasesAfterQuietWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := New(7 * time.Second)
	a.Now = func() time.Time { return now }

	a.Add(1, "Client", chat.Message{Text: "Добрий день", SentAt: now})

	// Window not elapsed yet.
	now = now.Add(3 * time.Second)
	if got := a.Due(); len(got) != 0 {
		t.Fatalf("Due() before window = %d units, want 0", len(got))
	}

	now = now.Add(5 * time.Second)
	got := a.Due()
	if len(got) != 1 {
		t.Fatalf("Due() after window = %d units, want 1", len(got))
	}
	if got[0].ChatID != 1 || got[0].Title != "Client" {
		t.Fatalf("Due()[0] = %+v, want chat 1 titled Client", got[0])
	}
	if a.PendingChats() != 0 {
		t.Fatalf("PendingChats() = %d, want 0 after release", a.PendingChats())
	}
}

func TestAddRestartsWindowAndMerges(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := New(7 * time.Second)
	a.Now = func() time.Time { return now }

	a.Add(1, "Client", chat.Message{Text: "перше", SentAt: now})
	now = now.Add(5 * time.Second)
	a.Add(1, "Client", chat.Message{Text: "друге", SentAt: now})

	// 6s after the first message, but only 1s after the second.
	now = now.Add(1 * time.Second)
	if got := a.Due(); len(got) != 0 {
		t.Fatalf("Due() = %d units, want 0 while burst is live", len(got))
	}

	now = now.Add(7 * time.Second)
	got := a.Due()
	if len(got) != 1 {
		t.Fatalf("Due() = %d units, want 1", len(got))
	}
	if want := "перше\nдруге"; got[0].Text() != want {
		t.Fatalf("Text() = %q, want %q", got[0].Text(), want)
	}
}

func TestDueKeepsChatsIndependent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := New(7 * time.Second)
	a.Now = func() time.Time { return now }

	a.Add(1, "A", chat.Message{Text: "old", SentAt: now})
	now = now.Add(6 * time.Second)
	a.Add(2, "B", chat.Message{Text: "new", SentAt: now})

	now = now.Add(2 * time.Second)
	got := a.Due()
	if len(got) != 1 || got[0].ChatID != 1 {
		t.Fatalf("Due() = %+v, want only chat 1", got)
	}
	if a.PendingChats() != 1 {
		t.Fatalf("PendingChats() = %d, want 1", a.PendingChats())
	}
}

func TestFlushReleasesEverything(t *testing.T) {
	t.Parallel()

	a := New(time.Hour)
	a.Add(1, "A", chat.Message{Text: "x"})
	a.Add(2, "B", chat.Message{Text: "y"})

	got := a.Flush()
	if len(got) != 2 {
		t.Fatalf("Flush() = %d units, want 2", len(got))
	}
	if a.PendingChats() != 0 {
		t.Fatalf("PendingChats() = %d, want 0", a.PendingChats())
	}
}
