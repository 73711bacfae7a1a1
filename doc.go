// Package colframe contains the core types of colframe, the block/column storage
// manager that sits beneath a DataFrame façade. This root package defines the
// element type tags, the column index contract and the process-wide
// copy-on-write mode, and is a good overview of the key concepts:
//
//   - a Buffer (package buffer) is a contiguous, homogeneously-typed vector
//     with an optional validity mask;
//   - a Block (package internal/block) is a 2-D view of rows by columns over a
//     single Buffer, and a Group is the ordered set of Blocks backing a table;
//   - a ColumnIndex (package schema) maps logical column labels and positions
//     to physical (block, offset) slots;
//   - a Tracker (package internal/refs) records which tables and views share a
//     Buffer, so that a write can decide whether it must copy first;
//   - a Frame (package frame) is the table/view object handed to a façade.
package colframe
