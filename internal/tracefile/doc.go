// Package tracefile reads and writes the binary build-trace protocol.
//
// A trace is a flat sequence of records with no header and no end marker:
//
//	Stream = Record*
//	Record = Tag(u8) ProcessNum(i32 LE) Payload
//
//	1 REGISTER    path
//	2 WRITE       path
//	3 READ        path
//	4 REMOVE      path
//	5 RENAME      oldPath newPath
//	6 NEW_LINK    target linkPath
//	7 NEW_PROGRAM parentProcessNum(i32 LE) argv* "" envp* ""
//
// Strings are NUL-terminated byte sequences. Lists of strings end with an
// empty string. Running out of bytes exactly at a record boundary is a clean
// end of stream (io.EOF); running out anywhere else is a TruncatedError.
//
// Traces are usually gzip-compressed and can exceed 1 GB, so the Reader
// works from fixed-size chunks and never holds the whole stream in memory.
package tracefile
