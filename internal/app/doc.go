// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle: load graph
// definitions, build them into models and run one of them on an input,
// decoupled from any specific entrypoint like a CLI.
package app
