// Package registry is the explicit type catalogue behind the codec and the
// reconciler: it resolves type names written as "__type" tags, describes
// record members, builds fresh instances and owns the codecs of opaque leaf
// types.
//
// Types are registered up front with samples:
//
//	reg := registry.New()
//	reg.Register(&showcase.ExampleRow{}, &showcase.CoolThing1{}, &showcase.CoolThing2{})
//
// A sample is kept with its exact type, so a pointer sample decodes as a
// pointer. Names are fully qualified: "<package path>.<TypeName>".
package registry
