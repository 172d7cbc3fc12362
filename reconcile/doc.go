// Package reconcile deep-clones record graphs and merges one version of a
// graph into another in place.
//
// Merge makes the target equal to the source while keeping every record
// whose runtime type did not change: pointers other code holds into the
// target stay valid. Opaque leaves are shared, never copied.
package reconcile
