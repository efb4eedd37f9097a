// Package client contains the content client of the flight school back-office.
//
// # Overview
//
// The package provides:
//  1. A transport contract (see the Client interface) to the remote headless
//     CMS: collection and by-id reads, create/update/delete, asset upload,
//     login and user lookups used for role enrichment.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that attaches the
//     bearer token of the bound session to every request and tells the
//     session to invalidate itself on any 401 response.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the SQLite
//     file that keeps the session between runs.
//
// # Error Handling
//
// Every failure is returned as *CMSError. Transport failures become
// {500, "Network Error"}; non-2xx answers carry the status and, when the
// server sent them, its error name, message and details. CMSError matches
// the sentinels ErrUnavailable, ErrUnauthorized and ErrNotFound via errors.Is.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept a
// context.Context and honor cancellation.
package client
