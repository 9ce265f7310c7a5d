package main

import (
	"fmt"
	"os"
)

func main() {
	err := rootCmd.Execute()
	if cerr := closeBudget(); cerr != nil {
		fmt.Fprintf(os.Stderr, "close budget: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
