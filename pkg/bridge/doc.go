// Package bridge relays game chat events to a downstream chat channel.
//
// A Bridge owns the ingestion queue, the delivery worker and the stats
// aggregator. Callers submit events from any goroutine; a single worker
// delivers them in admission order, batching and backing off when the
// provider throttles.
//
// Example usage:
//
//	cfg := bridge.DefaultConfig()
//	b, err := bridge.New(cfg, transport, bridge.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Stop()
//
//	switch b.Submit(bridge.Event{Text: "hello", Sender: "Bob"}) {
//	case bridge.SubmitFull:
//	    // shed load
//	}
package bridge
