// Package codec converts record graphs to node trees and back.
//
// Records are written as objects with their serialized members in
// declaration order. Nil members are omitted. An object carries a "__type"
// tag when its static slot cannot tell its type: interface slots, runtime
// types that differ from the declared one, members flagged `dt:",annotate"`
// and every nested object when annotation is requested.
//
// Decoding never aborts on partial data: elements with unknown or
// incompatible tags, values of the wrong shape and numbers out of range are
// dropped and reported as warnings.
package codec
