// Package mcpserver exposes the CyberX panels as a Model Context Protocol
// server, so an AI assistant can run the same tools a person reaches from
// the command line.
//
// Every panel in the registry becomes one tool. Its input schema is built
// from the panel's parameters, and a call goes through the registry, so
// argument validation, the crash boundary and event dispatch behave exactly
// as they do for the CLI.
//
// The server also offers:
//
//   - Resources: the panel catalog and version information
//   - Prompts:   guided recon and token review workflows
//
// # Transports
//
//   - stdio: one client per process, used by IDE integrations
//   - HTTP:  streamable HTTP, mounted by the REST server or served alone
//
// # Usage
//
//	reg := panel.New(env, panel.WithDispatcher(d))
//	srv := mcpserver.New(&mcpserver.Config{Registry: reg})
//	err := srv.RunStdio(ctx)
package mcpserver
