// Package sanitizer normalizes free-form user input before validation and
// storage.
//
// All functions are idempotent: applying them twice gives the same result.
// Invalid input degrades to an empty string rather than an error, so the
// validators downstream decide whether the field was required.
//
// Normalization includes:
//   - Text: Collapse whitespace, drop control characters, trim
//   - Emails: Trim and lowercase
//   - Phones: E.164 via libphonenumber, digits only as a fallback
//   - URLs: Enforce HTTPS, lowercase host, drop tracking parameters
package sanitizer
