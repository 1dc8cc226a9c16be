// Package codegen turns a block graph into Arduino C++ statements.
//
// Generation walks the graph depth-first from the Start block, validating
// each block's fields immediately before emitting it. The first invalid
// field aborts the run and no partial text is returned. Declared variables
// live in a single flat namespace that starts empty on every run.
//
// The output is only the statement sequence; wrapping it in setup() and
// loop() is the job of package sketch.
package codegen
