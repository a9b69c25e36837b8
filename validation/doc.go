// Package validation checks raw login input before any security or business logic
// runs.
//
// [Service.ValidateLogin] never fails on user input: malformed input is reported
// through [Result] with every field error collected in one pass, ordered
// identifier first. Rule sets are compiled and dry-run by [New], so a broken rule
// set surfaces at startup instead of on a request.
//
// Rules are evaluated with go-playground/validator.
package validation
