// Package app holds the relay's use cases: validating and routing events to
// the live broadcast path and the durable log hand-off.
//
// Durability and liveness are independent. A reaction is forwarded to the
// durable log while it is broadcast; forwarding failures are reported to the
// caller but never hold back or cancel the broadcast.
package app
