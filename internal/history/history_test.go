package history

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLog_AppendFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "log.csv")
	l := NewLog(path)
	l.now = fixedClock(time.Date(2026, 10, 17, 9, 30, 0, 0, time.FixedZone("EEST", 3*3600)))

	score := 0.61234
	if err := l.Record("o carte despre prietenie, și magie", "The Hobbit", &score); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := l.Record("stupid", "", nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "timestamp,query,picked_title,picked_score\n" +
		"2026-10-17T06:30:00Z,\"o carte despre prietenie, și magie\",The Hobbit,0.6123\n" +
		"2026-10-17T06:30:00Z,stupid,,\n"
	if string(data) != want {
		t.Errorf("file =\n%s\nwant\n%s", data, want)
	}
}

func TestLog_Last(t *testing.T) {
	l := NewLog(filepath.Join(t.TempDir(), "log.csv"))

	empty, err := l.Last(5)
	if err != nil || len(empty) != 0 {
		t.Fatalf("Last() on missing file = %v, %v", empty, err)
	}

	for _, q := range []string{"a", "b", "c"} {
		score := 0.5
		if err := l.Record(q, strings.ToUpper(q), &score); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"b", "c"}},
		{0, []string{"a", "b", "c"}},
		{10, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		got, err := l.Last(tt.n)
		if err != nil {
			t.Fatalf("Last(%d) error = %v", tt.n, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("Last(%d) = %d entries, want %d", tt.n, len(got), len(tt.want))
		}
		for i := range got {
			if got[i].Query != tt.want[i] {
				t.Errorf("Last(%d)[%d] = %s, want %s", tt.n, i, got[i].Query, tt.want[i])
			}
			if got[i].PickedScore == nil || *got[i].PickedScore != 0.5 {
				t.Errorf("score not parsed: %v", got[i].PickedScore)
			}
		}
	}
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := NewLog(filepath.Join(t.TempDir(), "log.csv"))

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Record("q", "", nil); err != nil {
				t.Errorf("Record() error = %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := l.Last(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 25 {
		t.Errorf("entries = %d, want 25", len(entries))
	}
}
