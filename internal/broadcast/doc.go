// Package broadcast implements the subscriber pool that shards live viewer
// connections across capacity-bounded distribution units.
//
// Units guard their connection sets with a mutex; check-and-add happens under
// one lock so concurrent admissions never overshoot capacity. Broadcast sends
// to a snapshot, so connections may leave mid-broadcast.
// Assignment is first-fit: early units fill up before later ones receive clients.
package broadcast
