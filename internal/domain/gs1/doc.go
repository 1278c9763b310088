// Package gs1 contains the GS1 Business Messaging Standard (BMS 3.3) message
// model exchanged with trading partners: Order, Despatch Advice,
// Order Response and Receiving Advice.
//
// Message is a tagged variant over the four documents; the Kind field is the
// only discriminator used by the queue and the transport.
package gs1
