// Package cli implements the dronestatus command-line interface.
//
// The root command runs the dashboard:
//
//	dronestatus [position-topic]
//
// It loads configuration (see package config), connects to rosbridge,
// optionally through an SSH tunnel, and redraws the status line until
// interrupted. Supporting subcommands:
//
//	dronestatus init        - Create .dronestatus.yaml
//	dronestatus version     - Print build information
//	dronestatus completion  - Generate shell completion scripts
package cli
