// Package cli implements the vault command-line client.
//
// Each invocation runs one command against the gRPC file service:
//
//	vault [-a addr] [-t token] [-w seconds] [-c config.json] <command> [options] [args]
//
// Commands: ping, upload, version, download, info, ls, trash, rm, restore,
// usage, share, open, grant, revoke, help.
package cli
