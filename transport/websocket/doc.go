// Package websocket delivers round messages to the participants of a scope.
//
// Clients connect to /ws?scope=<scope> and receive a JSON Frame for every
// message the game service emits in that scope: the teaser and prompt when a
// round starts, wrong-guess notices, and the reveal when a round ends.
//
// Clients may also guess by sending {"player": "...", "text": "..."}. When a
// guess is rejected (for example no active round) the error frame goes back
// to that client only; accepted guesses are announced through the normal
// broadcast.
//
// The Hub runs a single event loop that owns the client map. Notify never
// blocks past its context or the hub's shutdown.
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.SetGuessHandler(func(ctx context.Context, scope, player, text string) error {
//		_, err := gameService.SubmitGuess(ctx, scope, player, text)
//		return err
//	})
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
package websocket
