// Package script drives a session with a line-oriented call script, without
// a CPU emulator. It is used by cmd/run and by tests that exercise handlers
// end to end.
//
// Each line is one statement:
//
//	# comment
//	h = CreateFileA "C:\out.txt" GENERIC_WRITE 0 NULL CREATE_ALWAYS FILE_ATTRIBUTE_NORMAL NULL
//	n = buf:4
//	WriteFile $h "hello" 5 $n NULL
//	u32 $n
//	dump $n 4
//	CloseHandle $h
//
// Arguments are decimal or hex integers (negative values are two's
// complement), Win32 constant names, $variables, quoted strings and buf:N
// buffers. Inside quotes \", \\, \n, \t, \r and \0 are escapes and any other
// backslash is literal, so write "C:\\tmp" or "C:/tmp" for such paths.
//
// Strings are copied into the guest heap as narrow or wide strings depending
// on the parameter type; for plain pointer parameters the raw bytes are
// copied. buf:N allocates N zeroed bytes. Both are freed once the statement
// completes, except when a let binds them to a variable.
package script
