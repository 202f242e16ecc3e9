// Package ir provides the value types shared by every layer of halodb.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Value is sealed: only the variants declared here implement it
//   - Null{} is the one missing-data sentinel; a nil Value is treated the same way
//   - Float may hold NaN, which means "unknown" and is never coerced to zero
//   - Every evaluator-facing Column is aligned 1:1 with its input halos
package ir
