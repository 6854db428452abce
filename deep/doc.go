// Package deep provides the structural primitives the collection store is
// built on: graph-aware cloning, sealing (freezing) of reachable values,
// structural equality, dotted path lookup and a field-wise merge with a
// pluggable policy for slices.
//
// All functions work on arbitrary Go values through reflection. Records are
// typically map[string]any documents or plain structs.
package deep
