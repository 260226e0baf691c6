// Package errors provides the structured AppError used for configuration and
// validation failures, and the JSON error body served by the test fake.
//
// Request-execution failures have their own taxonomy in package apiclient;
// AppError never crosses the client's completion boundary.
package errors
