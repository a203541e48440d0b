// Package service is the game engine instance: it owns the round registry,
// the timeout scheduler, the candidate pool, the teaser generator and the
// reaper, and exposes the round operations the transports call.
//
// Round lifecycle:
//
// StartRound checks the allow-list and the registry, draws a candidate,
// generates its teaser outside any lock, then registers the round and arms
// its timer while holding the round lock. The teaser and prompt are sent to
// the scope through the Notifier.
//
// SubmitGuess and the timer callback both lock the round and re-check that
// it is still registered and active. Whichever gets there first performs the
// terminal transition, the reveal, the registry removal, the timer cancel and
// the teaser cleanup before releasing the lock. The other sees no active
// round and does nothing.
//
// Rejections (scope not allowed, round already active, empty pool, image
// failure, no active round) are returned to the caller only. Messages.ForError
// renders them for users and engine.Code gives the machine code.
//
// Usage:
//
//	svc := service.NewGameService(service.Dependencies{
//		Registry:  session.NewRegistry(),
//		Scheduler: session.NewScheduler(),
//		Pool:      pool,
//		Generator: generator,
//		Reaper:    reaper,
//		Aliases:   aliasManager,
//		Notifier:  service.Notifiers{hub, service.LogNotifier{}},
//	}, service.Options{
//		MaxAttempts: 5,
//		Timeout:     30 * time.Second,
//		AllowList:   []string{"*"},
//	})
//
//	start, err := svc.StartRound(ctx, "group-1")
//	result, err := svc.SubmitGuess(ctx, "group-1", "alice", "miku")
package service
