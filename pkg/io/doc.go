// Package io reads distance measurements and writes estimated coordinates.
//
// # Constraint Input
//
// CSV is the primary format. The header row names the columns, so column
// order does not matter and extra columns are ignored:
//
//	departure_point,arrival_point,measurement_value
//	P1,P2,3.0
//	P2,P3,4.5
//
// The short names from, to and distance are accepted as well.
//
// JSON input is an array of objects:
//
//	[
//	  {"from": "P1", "to": "P2", "distance": 3.0},
//	  {"from": "P2", "to": "P3", "distance": 4.5}
//	]
//
// Use [ReadConstraintsCSV] or [ReadConstraintsJSON] for any io.Reader, or
// [ImportConstraints] to pick the format from a file extension. Every
// reader validates entries through [constraint.New], so errors carry the
// offending row.
//
// # Point Output
//
// [WritePointsCSV] writes point,x,y,z rows; [WritePointsJSON] writes an
// array of {"id","x","y","z"} objects. [ExportPoints] chooses by
// extension. Values are written in shortest round-trip form.
package io
