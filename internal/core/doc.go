// Package core provides the business logic for the CSV transform pipeline.
//
// The package has no UI or transport dependencies. Web handlers, CLI
// commands and tests all use it through [Service].
//
// # Pipeline
//
// A request flows through five components:
//
//  1. [LoadCSV] parses an upload (header row required, UTF-8, consistent
//     field counts) into a [Table].
//  2. [UnitRegistry] discovers transform units: manifest files in a
//     directory, each an ordered list of registered steps.
//  3. [Execute] runs a unit against a private copy of the input.
//  4. [Session] keeps the input and a single result slot per user.
//  5. [EncodeCSV] and [ExportFilename] produce the download.
//
// # Steps
//
// Steps are compiled into the binary and registered at init time with
// [RegisterStep]. The built-in set lives in package steps:
//
//	core.RegisterStep(core.StepDefinition{
//	    Name:    "swap_columns",
//	    Factory: newSwapColumns,
//	})
//
// A factory validates its arguments when the unit is loaded, so a manifest
// with a typo is reported as malformed before anyone runs it.
//
// # Error Handling
//
// Failures are typed: [*ParseError], [*UnitError] and [*EncodeError], each
// matching a sentinel via errors.Is. [MapError] turns them into a
// [UserMessage] with a support code:
//
//   - FILE001-FILE005: upload errors (size, format, encoding)
//   - UNIT001-UNIT004: transform errors (not found, malformed, runtime, contract)
//   - EXP001, RUN001, SES001-SES002: export, capacity and session state
package core
