// Package gs1 translates between GS1 BMS messages and supply acts.
//
// Inbound, DespatchService and OrderResponseService turn partner messages
// into act bundles and commit them atomically. Outbound, Trigger reacts to
// acts inserted into the store and asks Composer for Order or Receiving
// Advice messages, which it enqueues for the delivery dispatcher.
package gs1
