// Package testutils provides test doubles shared by service and API tests:
// an in-memory store.Transactor with optimistic versioning and injectable
// commit conflicts, and a controllable clock.
//
//	mem := testutils.NewMemoryStore()
//	clk := testutils.NewClock(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC))
//	svc := progress.NewService(mem, progress.Options{Now: clk.Now})
//
//	mem.FailNextCommits(2) // the next two transactions lose their race
package testutils
