// Package table implements row tables: ordered lists of keyed records of one
// schema type, persisted as a JSON resource.
//
// A resource file looks like
//
//	{
//	  "StructType": "example.com/game.Item",
//	  "StructEntries": [ { "Key": "Sword", "Damage": 7 } ],
//	  "__entryCounter": 1,
//	  "__references": [ "textures/sword.png" ],
//	  "__version": 1
//	}
//
// Only StructType is required. Loaded rows are tracked per table in an
// identity table, so Fix can refresh a table from disk while keeping the row
// instances other code already holds.
package table
