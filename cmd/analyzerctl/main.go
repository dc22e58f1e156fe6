// Package main is the analyzer command-line client.
package main

func main() {
	Execute()
}
