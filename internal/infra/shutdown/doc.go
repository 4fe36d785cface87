// Package shutdown coordinates graceful process termination.
//
// Components register named hooks as they start. When SIGINT or SIGTERM
// arrives, or Trigger is called, the hooks run in reverse registration
// order under one deadline, so the HTTP listener stops before the session
// manager and the session manager before storage.
//
//	h := shutdown.NewHandler(30*time.Second, logger)
//	h.OnShutdown("storage", db.Close)
//	err := h.Wait(ctx)
package shutdown
