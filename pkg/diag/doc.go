/*
Package diag carries compiler diagnostics.

The compiler never stops at the first problem. Every stage reports through a
Handler and keeps going so that one run surfaces as many independent problems
as possible; callers decide afterwards whether the result may be used, usually
by asking a Collector for its Err.
*/
package diag
