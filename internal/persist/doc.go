// Package persist provides scoped key-value storage with two lifetimes.
//
// The durable scope survives across sessions and holds the record
// collection. The session scope lives as long as one browsing session and
// holds the automation state; it is cleared when the session ends.
//
// Values are opaque byte slices. Every write replaces the full value stored
// under a key, there is no merge or partial update.
package persist
