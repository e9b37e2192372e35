// Package app is the composition root for shoplist.
//
// Run wires the pieces together in a fixed order:
//
//  1. Load ~/.config/shoplist/config.toml (missing file means defaults)
//  2. Open the rotating zerolog file (console output for batch transfers)
//  3. Open the bbolt local cache
//  4. Open the remote backend: in-memory, Firestore with Firebase Auth, or Redis
//  5. Build the identity session and the sync controller
//  6. Resolve the startup identity from -join, a credential, or the restored
//     guest marker, and load it
//  7. Either run an -import/-export transfer and exit, or start the
//     reconnector and the TUI
//
// A failed initial load is not fatal: the controller falls back to the local
// cache and the reconnector retries in the background with exponential
// backoff (2s doubling, capped at 30s) until the remote store answers.
//
// Fatal errors returned from Run are configuration, cache, backend and
// credential failures.
package app
