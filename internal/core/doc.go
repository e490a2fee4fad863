// Package core provides the business logic for bulk product imports.
//
// This package is the heart of the importer, containing all domain logic
// independent of any transport layer. It is used by the HTTP server, the
// bulkupload CLI and tests without modification.
//
// # Pipeline
//
// A CSV file moves through four stages before anything reaches the
// marketplace API:
//
//  1. Tokenize: [ParseCSV] strips a BOM, sanitizes UTF-8 and splits each
//     non-empty line with [ParseCSVLine].
//  2. Map: [Mapper.MapRow] canonicalises headers and turns cell text into
//     typed [Fields] (decimals, cleaned text, normalised lists, image arrays).
//  3. Validate: [Validator.Validate] applies the product rules and returns
//     at most five errors per row.
//  4. Preview: [Importer.Preview] assembles the rows, summary counts and the
//     error panel shown to the seller.
//
// Valid rows are projected into [Product] values and handed to a
// [Submitter], which sends one request for small uploads and sequential
// batches for large ones.
//
// # Sessions
//
// [Service] owns upload sessions. Each session walks the state machine
//
//	idle -> file-selected -> previewed -> uploading -> success | partial-failure | hard-failure
//
// and [Service.Clear] returns it to idle from any state.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE006: File errors (size, type, empty, header)
//   - VAL001-VAL003: Validation errors (no valid rows, invalid rows)
//   - UPL001-UPL006: Upload errors (timeout, busy, session state)
//   - NET001-NET003: Marketplace API errors
//   - AUTH001-AUTH002: Seller identity errors
//   - RATE001: Rate limiting
package core
