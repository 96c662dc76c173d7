// Package batch accumulates artist identifiers that were seen without full
// data and packs them into batch lookup tasks.
//
// Design decision: the aggregator only ever produces full batches on its own.
// A partial batch is produced only when the caller asks for it with Flush,
// which the crawl coordinator does once the work queue has drained. This
// keeps the number of lookup requests minimal while guaranteeing that no
// buffered identifier is left behind at the end of a crawl.
package batch
