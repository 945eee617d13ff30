// Package models holds the client's data model: the records exchanged with the
// remote blog service, the typed inputs of each operation with their local
// validation, and the OpState attached to every loaded view.
package models
