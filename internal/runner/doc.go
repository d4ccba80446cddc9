// Package runner drives one report run: load the input table, summarise
// ph, turbidity and temperature, check the safe-range table, and write the
// report. A missing or unusable input, or one without valid rows,
// short-circuits to the "No valid data found." message.
package runner
