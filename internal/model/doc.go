// Package model provides the domain types shared by the pinbot packages.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal.
//
// Key design constraints:
//   - Sizes are int64 bytes; SizeResolutionFailed (-1) marks a failed resolution
//   - Optional ledger columns are pointers, never zero-value sentinels
//   - All JSON tags use snake_case
package model
