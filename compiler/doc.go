/*

Process of compilation

Program Text ->
	tokenize ->
Token Stream ->
	parse ->
Abstract Syntax Tree (ast) ->
	resolve ->
Checked Program ->
	run ->
Output + Exit Status

The checked program may also take the native path:

Checked Program ->
	lower ->
Intermediate Representation (ir) ->
	emit ->
Assembly Text ->
	assemble + link ->
Binary Executable

Assembling and linking are not part of this module.

*/
package compiler
