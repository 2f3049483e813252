// Package types defines the Model interface, column descriptors, the library
// entity types, and the standard errors for the shelf catalogue.
//
// Every persistent type implements Model by hand: it declares its table,
// lists its columns in a fixed order, and hands out values and scan targets in
// that same order. The sqlite package builds its SQL from these declarations;
// no reflection is involved.
package types
