// Package dispatch routes guest API calls to host handlers.
//
// Every emulated API is registered once with a static Schema: its name, an
// ordered list of typed parameters and a return type. The CPU emulator's
// calling convention marshaler hands the registry the raw argument slots
// of a trapped call as a Frame; the registry decodes them per the schema,
// invokes the handler and turns its outcome into a scalar return value.
//
//	reg := dispatch.NewRegistry()
//	if err := kernel32.Register(reg); err != nil { ... }
//
//	res, err := reg.Call(ctx, sess, "WriteFile", dispatch.Values{h, buf, n, written, 0})
//	// res.Value is the guest return value, res.StackBytes what a stdcall
//	// callee pops.
//
// # Error Classes
//
// A handler reports guest-visible failure with an errors.Guest error. The
// registry stores its code as the session's last error, returns the
// handler's failure value and lets execution continue.
//
// Any other error is fatal: the session is aborted (the CPU Halter is
// invoked) and the error is returned to the caller. Calls to unregistered
// APIs are fatal unimplemented-capability errors.
package dispatch
