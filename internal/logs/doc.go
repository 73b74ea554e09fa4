// Package logs reads the docent server log file for the `docent logs` command.
//
// Tail returns the last N lines with the byte offset reached, and Follow
// polls from that offset until the context ends. Reads are line-bounded so a
// large log never loads into memory at once.
package logs
