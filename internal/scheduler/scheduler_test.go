package scheduler

import (
	"sync"
	"testing"
)

func collectRunner(out *[]interface{}) Runner {
	return func(payload interface{}) {
		*out = append(*out, payload)
	}
}

func TestDrainDueOrdering(t *testing.T) {
	t.Run("returns tasks in deadline order regardless of posting order", func(t *testing.T) {
		var got []interface{}
		s := New(collectRunner(&got))

		s.PostTask(100, "a")
		s.PostTask(50, "b")
		s.PostTask(150, "c")

		ran := s.DrainDue(120)
		if ran != 2 {
			t.Fatalf("DrainDue(120) ran %d tasks, want 2", ran)
		}
		if len(got) != 2 || got[0] != "b" || got[1] != "a" {
			t.Errorf("drained %v, want [b a]", got)
		}
		if s.Pending() != 1 {
			t.Errorf("Pending() = %d, want 1", s.Pending())
		}
	})

	t.Run("equal deadlines drain in submission order", func(t *testing.T) {
		var got []interface{}
		s := New(collectRunner(&got))

		for _, p := range []string{"first", "second", "third", "fourth"} {
			s.PostTask(10, p)
		}

		s.DrainDue(10)
		want := []string{"first", "second", "third", "fourth"}
		for i, w := range want {
			if got[i] != w {
				t.Errorf("position %d: got %v, want %s", i, got[i], w)
			}
		}
	})

	t.Run("stops at the first future deadline", func(t *testing.T) {
		var got []interface{}
		s := New(collectRunner(&got))

		s.PostTask(5, "due")
		s.PostTask(6, "future")

		if ran := s.DrainDue(5); ran != 1 {
			t.Errorf("DrainDue(5) ran %d tasks, want 1", ran)
		}
		if s.Pending() != 1 {
			t.Errorf("Pending() = %d, want 1", s.Pending())
		}
	})

	t.Run("empty drain is a no-op", func(t *testing.T) {
		var got []interface{}
		s := New(collectRunner(&got))
		if ran := s.DrainDue(1000); ran != 0 {
			t.Errorf("DrainDue on empty scheduler ran %d tasks", ran)
		}
	})
}

func TestDrainDueNonDecreasing(t *testing.T) {
	var got []interface{}
	s := New(collectRunner(&got))

	// Interleaved postings with duplicate deadlines
	deadlines := []uint64{30, 10, 20, 10, 30, 20, 10}
	for i, d := range deadlines {
		s.PostTask(d, [2]uint64{d, uint64(i)})
	}

	s.DrainDue(100)

	if len(got) != len(deadlines) {
		t.Fatalf("drained %d tasks, want %d", len(got), len(deadlines))
	}
	var lastDeadline, lastSeq uint64
	for i, p := range got {
		pair := p.([2]uint64)
		if pair[0] < lastDeadline {
			t.Errorf("position %d: deadline %d after %d", i, pair[0], lastDeadline)
		}
		if pair[0] == lastDeadline && pair[1] < lastSeq {
			t.Errorf("position %d: tie broken out of submission order", i)
		}
		lastDeadline, lastSeq = pair[0], pair[1]
	}
}

func TestPostDuringDrain(t *testing.T) {
	var got []interface{}
	var s *Scheduler
	s = New(func(payload interface{}) {
		got = append(got, payload)
		if payload == "repost" {
			// A task may post more work; it must not deadlock and a
			// past-deadline repost runs within the same pass.
			s.PostTask(1, "reposted")
		}
	})

	s.PostTask(1, "repost")
	s.DrainDue(50)

	if len(got) != 2 || got[1] != "reposted" {
		t.Errorf("drained %v, want [repost reposted]", got)
	}
}

func TestConcurrentPost(t *testing.T) {
	var got []interface{}
	s := New(collectRunner(&got))

	const posters = 8
	const perPoster = 200

	var wg sync.WaitGroup
	wg.Add(posters)
	for p := 0; p < posters; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPoster; i++ {
				s.PostTask(uint64(i), p)
			}
		}(p)
	}
	wg.Wait()

	if ran := s.DrainDue(perPoster); ran != posters*perPoster {
		t.Errorf("drained %d tasks, want %d", ran, posters*perPoster)
	}
}
