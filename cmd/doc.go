// Package cmd implements the securestore command-line interface.
//
// Every command returns its error; main prints it with HandleError.
package cmd
