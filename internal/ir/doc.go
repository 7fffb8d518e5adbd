// Package ir provides the canonical value documents used for action args.
//
// This package contains value types and their encoding only. All other
// internal packages may import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - amounts are decimal strings, counters integers
//   - Canonical encoding follows RFC 8785 so stored documents are byte-stable
//   - All JSON keys use snake_case
package ir
