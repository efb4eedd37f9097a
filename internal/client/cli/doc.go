// Package cli provides the interactive back-office for the flight school CMS.
//
// It wires configuration, the local session store, the CMS client and the
// query cache into a REPL. Reads are open to everyone; writes and uploads
// need a session whose role passes the configured admin policy.
//
// Key features:
//   - Login / Logout / WhoAmI, with the session resumed across runs
//   - List and Show records of every content kind
//   - Create, Update and Delete records from JSON attributes
//   - Upload media files
//   - Refresh cached reads
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, runREPL and the command methods for details.
package cli
