// Package cli provides the interactive blog command-line client.
//
// The REPL is a thin view over the session manager and the resource,
// engagement and admin stores. Commands read their state and never talk to
// the network directly.
//
// Key features:
//   - Register / Login / Logout, profile editing
//   - Browse posts with search, category filter and paging
//   - Show a post with its comments and the user's reaction
//   - Create, edit and delete own posts
//   - Comment, edit or delete comments, like and dislike
//   - Admin console: dashboard, users, all posts
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
