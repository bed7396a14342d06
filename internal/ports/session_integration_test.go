package ports_test

import (
	"bufio"
	"context"
	"os"
	"testing"
	"time"

	"github.com/quentinrf/light-analyzer/internal/adapters/csvfile"
	"github.com/quentinrf/light-analyzer/internal/adapters/memory"
	"github.com/quentinrf/light-analyzer/internal/adapters/mock"
	"github.com/quentinrf/light-analyzer/internal/domain"
	"github.com/quentinrf/light-analyzer/internal/ports"
)

func waitForReadings(t *testing.T, session *ports.SamplingSession, n uint64) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for session.Status().ReadingCount < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d readings, got %d", n, session.Status().ReadingCount)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestSession_FakeSourceToCSV runs several sessions against the simulated
// sensor and checks the resulting file line by line.
func TestSession_FakeSourceToCSV(t *testing.T) {
	ctx := context.Background()

	dispatcher := ports.NewDispatcher(ports.Displays{})
	defer dispatcher.Close()

	readingLog := csvfile.NewReadingLog(t.TempDir(), time.UTC)
	journal := memory.NewSessionRepository()
	session := ports.NewSamplingSession(
		mock.NewFakeSource(500.0, 100.0),
		readingLog,
		dispatcher,
		ports.WithJournal(journal),
	)

	const sessions = 3
	var counts []uint64
	for i := 0; i < sessions; i++ {
		if err := session.Start(ctx); err != nil {
			t.Fatalf("session %d: Start failed: %v", i, err)
		}
		waitForReadings(t, session, 2)
		session.Stop(ctx)

		st := session.Status()
		if st.Active {
			t.Fatalf("session %d: expected idle after Stop", i)
		}
		counts = append(counts, st.ReadingCount)
	}

	if err := session.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	f, err := os.Open(readingLog.Path())
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	defer f.Close()

	var readings []domain.Reading
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		r, err := domain.ParseLine(scanner.Text())
		if err != nil {
			t.Fatalf("malformed line %q: %v", scanner.Text(), err)
		}
		readings = append(readings, r)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	// each session numbers its readings from 1 with no gaps
	idx := 0
	for i, n := range counts {
		for seq := uint64(1); seq <= n; seq++ {
			if idx >= len(readings) {
				t.Fatalf("session %d: file ended before reading %d", i, seq)
			}
			r := readings[idx]
			if r.Sequence != seq {
				t.Fatalf("session %d: expected sequence %d at line %d, got %d", i, seq, idx+1, r.Sequence)
			}
			if r.Lux < 400 || r.Lux > 600 {
				t.Errorf("session %d: lux %v outside simulated range", i, r.Lux)
			}
			if idx > 0 && r.TimestampMillis < readings[idx-1].TimestampMillis {
				t.Errorf("line %d: timestamp went backwards", idx+1)
			}
			idx++
		}
	}
	if idx != len(readings) {
		t.Errorf("expected %d lines, file has %d", idx, len(readings))
	}

	recs, err := journal.GetSessionsInRange(ctx, time.Unix(0, 0), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("GetSessionsInRange failed: %v", err)
	}
	if len(recs) != sessions {
		t.Fatalf("expected %d journal entries, got %d", sessions, len(recs))
	}
	for i, rec := range recs {
		if rec.Running() {
			t.Errorf("journal entry %d still running", i)
		}
		if rec.ReadingCount != counts[i] {
			t.Errorf("journal entry %d: expected %d readings, got %d", i, counts[i], rec.ReadingCount)
		}
	}
}
