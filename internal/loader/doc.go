// Package loader reads a delimited measurement table into validated records.
//
// The first row is the header. Every following row is converted into a
// types.Record in a single construction step: either all of ph, turbidity and
// temperature parse as floats and the record is kept, or the whole row is
// dropped and reported as a *RowError. Rows are returned in file order.
//
// Load(path, opts) opens and closes the file itself; Parse(r, opts) works on
// any reader.
package loader
